package engine

import "fmt"

// EngineError wraps a failure from the underlying storage engine (file
// I/O, corruption, the embedded database's own error types) with the
// operation that triggered it, satisfying spec.md §7's EngineError
// kind. Callers that only care whether the engine itself failed (as
// opposed to ErrNotFound or ErrFamilyNotFound) can match it with
// errors.As.
type EngineError struct {
	Op   string
	Name string
	Err  error
}

func (e *EngineError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("engine: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("engine: %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func wrapEngineErr(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, Name: name, Err: err}
}

// FamilyNotFoundError is the concrete form of ErrFamilyNotFound that
// names the family that was missing. errors.Is(err, ErrFamilyNotFound)
// still matches it.
type FamilyNotFoundError struct {
	Family string
}

func (e *FamilyNotFoundError) Error() string {
	return fmt.Sprintf("engine: family %q not found", e.Family)
}

func (e *FamilyNotFoundError) Is(target error) bool {
	return target == ErrFamilyNotFound
}

// SerializationError reports that a value could not be encoded (today:
// zstd compression) before being written to a family.
type SerializationError struct {
	Family string
	Err    error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("engine: serializing value for family %q: %v", e.Family, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// DeserializationError reports that a value read back from a family
// could not be decoded (today: zstd decompression), e.g. because it
// was written under a different FamilyOptions.Compression setting.
type DeserializationError struct {
	Family string
	Err    error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("engine: deserializing value from family %q: %v", e.Family, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }
