package scrambler

// ScrambleType defines the category of identifier being scrambled.
type ScrambleType string

const (
	TypeVariable ScrambleType = "variable"
	TypeFunction ScrambleType = "function"
	// TypeShared is the single namespace of flat mode, where functions and
	// variables draw from one table.
	TypeShared ScrambleType = "shared"
)

// --- Reserved C Keywords ---
// Generated names must never produce one of these, even though CMini itself
// only knows a handful: the output is compiled as C.
var reservedKeywords = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extern": true, "float": true, "for": true, "goto": true,
	"if": true, "inline": true, "int": true, "long": true, "register": true,
	"restrict": true, "return": true, "short": true, "signed": true,
	"sizeof": true, "static": true, "struct": true, "switch": true,
	"typedef": true, "union": true, "unsigned": true, "void": true,
	"volatile": true, "while": true,
	"_Bool": true, "_Complex": true, "_Imaginary": true, "_Alignas": true,
	"_Alignof": true, "_Atomic": true, "_Noreturn": true, "_Static_assert": true,
	"_Thread_local": true,
	// stdbool.h
	"bool": true, "true": true, "false": true,
}

// --- Reserved Library Names ---
// Functions and macros from the headers the output may include.
var reservedLibrary = map[string]bool{
	"printf": true, "puts": true, "putchar": true, "getchar": true,
	"scanf": true, "fprintf": true, "sprintf": true, "snprintf": true,
	"fputs": true, "fputc": true, "fflush": true, "stdout": true,
	"stderr": true, "stdin": true, "fopen": true, "fclose": true,
	"exit": true, "abort": true, "malloc": true, "free": true,
	"NULL": true, "EOF": true, "errno": true, "assert": true,
}

// isReserved reports whether a name can never be generated or renamed.
func isReserved(name string) bool {
	return reservedKeywords[name] || reservedLibrary[name]
}

// IsReserved reports whether name is a C keyword or a library name the
// output may reference.
func IsReserved(name string) bool { return isReserved(name) }
