package brick

import "fmt"

// Kind identifies a member of the error taxonomy in spec.md §7.
type Kind string

const (
	KindBrickMissingMetadata      Kind = "BrickMissingMetadata"
	KindBrickMalformedMetadata    Kind = "BrickMalformedMetadata"
	KindBrickMissingTemplateRoot  Kind = "BrickMissingTemplateRoot"
	KindGitFetchFailure           Kind = "GitFetchFailure"
	KindRegistryError             Kind = "RegistryError"
	KindNetworkDisabled           Kind = "NetworkDisabled"
	KindCacheWriteFailure         Kind = "CacheWriteFailure"
	KindVariableValidationError   Kind = "VariableValidationError"
	KindRenderError               Kind = "RenderError"
	KindFileWriteFailure          Kind = "FileWriteFailure"
	KindHookDependencyInstallFail Kind = "HookDependencyInstallFailure"
	KindHookInvalidCharacters     Kind = "HookInvalidCharactersException"
	KindHookMissingRun            Kind = "HookMissingRunException"
	KindHookRunException          Kind = "HookRunException"
	KindHookExecutionException    Kind = "HookExecutionException"
	KindBundleDecodeError         Kind = "BundleDecodeError"
)

// UsageClass reports whether this kind is in the usage-error class (exit
// code 64) rather than the generic failure class (70), per spec.md §7.
// The mason CLI in pkg/cli does not call it and does not set these exit
// codes.
func (k Kind) UsageClass() bool {
	switch k {
	case KindBrickMissingMetadata, KindBrickMalformedMetadata, KindBrickMissingTemplateRoot,
		KindVariableValidationError, KindNetworkDisabled:
		return true
	default:
		return false
	}
}

// Error is the common shape for every member of the taxonomy: a kind,
// a human message, and the underlying cause (if any).
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Optional provenance, populated by the component that raised it.
	Path     string
	Offset   int
	Missing  []string
	TypeErrors map[string]string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}
