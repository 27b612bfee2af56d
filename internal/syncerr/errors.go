// Package syncerr defines the structured error kinds shared across the
// sync client, replacing the const-char-star/std::string error channel of
// the original implementation with typed, wrappable Go errors.
package syncerr

import "fmt"

// ConfigError signals a fatal problem with the client configuration,
// discovered at construction time.
type ConfigError struct {
	Key string
	Msg string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return e.Msg
	}
	return fmt.Sprintf("config: %s: %s", e.Key, e.Msg)
}

func NewConfigError(key, msg string) *ConfigError {
	return &ConfigError{Key: key, Msg: msg}
}

// TransportError wraps a failure from the Connector (push, get, delete,
// wait, close).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// CryptoError signals a MAC mismatch, malformed ciphertext length, or
// padding failure in the crypto engine.
type CryptoError struct {
	Reason string
}

func (e *CryptoError) Error() string {
	return "crypto: " + e.Reason
}

func NewCryptoError(reason string) *CryptoError {
	return &CryptoError{Reason: reason}
}

// FilesystemError wraps an I/O failure encountered while applying a Msg to
// the local filesystem.
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem: %s: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

func NewFilesystemError(path string, err error) *FilesystemError {
	return &FilesystemError{Path: path, Err: err}
}
