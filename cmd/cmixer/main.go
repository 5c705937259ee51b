/*
cmixer (Entry Point)

cmixer obfuscates and deobfuscates programs written in CMini, a small
C-like language, and checks that two program variants behave the same by
compiling and running both.
*/
package main

import (
	"github.com/whit3rabbit/cmixer/cmd/cmixer/cmd"
)

// main is the entry point of the application.
func main() {
	cmd.Execute()
}
