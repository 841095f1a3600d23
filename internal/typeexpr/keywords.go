package typeexpr

// Pseudo-type names. They bypass name resolution and never carry generics.
const (
	TypeVar            = "var"
	TypeNull           = "null"
	TypeUndefined      = "undefined"
	TypeVoid           = "void"
	TypeNaN            = "NaN"
	TypeFunction       = "function"
	TypeGenerator      = "function*"
	TypeAsync          = "async"
	TypeAsyncGenerator = "async*"
	TypeClass          = "class"
)

var pseudoTypes = map[string]bool{
	TypeVar:            true,
	TypeNull:           true,
	TypeUndefined:      true,
	TypeVoid:           true,
	TypeNaN:            true,
	TypeFunction:       true,
	TypeGenerator:      true,
	TypeAsync:          true,
	TypeAsyncGenerator: true,
	TypeClass:          true,
}

// IsPseudoType reports whether name is one of the built-in pseudo-type names.
func IsPseudoType(name string) bool {
	return pseudoTypes[name]
}

// Container raw type names that accept generic arguments.
const (
	ContainerArray = "Array"
	ContainerSet   = "Set"
	ContainerMap   = "Map"
)

// reservedWords are JavaScript reserved words, which can never name a type.
var reservedWords = map[string]bool{
	"await":      true,
	"break":      true,
	"case":       true,
	"catch":      true,
	"class":      true,
	"const":      true,
	"continue":   true,
	"debugger":   true,
	"default":    true,
	"delete":     true,
	"do":         true,
	"else":       true,
	"enum":       true,
	"export":     true,
	"extends":    true,
	"false":      true,
	"finally":    true,
	"for":        true,
	"function":   true,
	"if":         true,
	"implements": true,
	"import":     true,
	"in":         true,
	"instanceof": true,
	"interface":  true,
	"let":        true,
	"new":        true,
	"null":       true,
	"package":    true,
	"private":    true,
	"protected":  true,
	"public":     true,
	"return":     true,
	"static":     true,
	"super":      true,
	"switch":     true,
	"this":       true,
	"throw":      true,
	"true":       true,
	"try":        true,
	"typeof":     true,
	"var":        true,
	"void":       true,
	"while":      true,
	"with":       true,
	"yield":      true,
}

// IsReservedWord reports whether name is a reserved word of the host language.
func IsReservedWord(name string) bool {
	return reservedWords[name]
}
