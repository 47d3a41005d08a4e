package config

// noFileError signals a Save with no backing file to write to.
type noFileError struct{}

func (noFileError) Error() string { return "config: no backing file to save to" }

// IsNoFile reports whether err means the manager has no backing file.
func IsNoFile(err error) bool {
	_, ok := err.(noFileError)
	return ok
}
