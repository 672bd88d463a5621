package node

// builtins holds the names of Python's builtins module plus the module
// attributes every file has.
var builtins = func() map[string]struct{} {
	names := []string{
		"__build_class__", "__debug__", "__doc__", "__import__", "__loader__",
		"__name__", "__package__", "__spec__",
		"__file__", "__path__", "__cached__",

		"abs", "aiter", "all", "anext", "any", "ascii", "bin", "breakpoint",
		"callable", "chr", "compile", "copyright", "credits", "delattr", "dir",
		"divmod", "eval", "exec", "exit", "format", "getattr", "globals",
		"hasattr", "hash", "help", "hex", "id", "input", "isinstance",
		"issubclass", "iter", "len", "license", "locals", "max", "min", "next",
		"oct", "open", "ord", "pow", "print", "quit", "repr", "round",
		"setattr", "sorted", "sum", "vars",

		"None", "Ellipsis", "NotImplemented", "False", "True",

		"bool", "bytearray", "bytes", "classmethod", "complex", "dict",
		"enumerate", "filter", "float", "frozenset", "int", "list", "map",
		"memoryview", "object", "property", "range", "reversed", "set", "slice",
		"staticmethod", "str", "super", "tuple", "type", "zip",

		"ArithmeticError", "AssertionError", "AttributeError", "BaseException",
		"BaseExceptionGroup", "BlockingIOError", "BrokenPipeError",
		"BufferError", "BytesWarning", "ChildProcessError",
		"ConnectionAbortedError", "ConnectionError", "ConnectionRefusedError",
		"ConnectionResetError", "DeprecationWarning", "EOFError",
		"EncodingWarning", "EnvironmentError", "Exception", "ExceptionGroup",
		"FileExistsError", "FileNotFoundError", "FloatingPointError",
		"FutureWarning", "GeneratorExit", "IOError", "ImportError",
		"ImportWarning", "IndentationError", "IndexError", "InterruptedError",
		"IsADirectoryError", "KeyError", "KeyboardInterrupt", "LookupError",
		"MemoryError", "ModuleNotFoundError", "NameError", "NotADirectoryError",
		"NotImplementedError", "OSError", "OverflowError",
		"PendingDeprecationWarning", "PermissionError", "ProcessLookupError",
		"RecursionError", "ReferenceError", "ResourceWarning", "RuntimeError",
		"RuntimeWarning", "StopAsyncIteration", "StopIteration", "SyntaxError",
		"SyntaxWarning", "SystemError", "SystemExit", "TabError", "TimeoutError",
		"TypeError", "UnboundLocalError", "UnicodeDecodeError",
		"UnicodeEncodeError", "UnicodeError", "UnicodeTranslateError",
		"UnicodeWarning", "UserWarning", "ValueError", "Warning",
		"ZeroDivisionError",
	}
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}()

// IsBuiltin reports whether name is a Python builtin.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}
