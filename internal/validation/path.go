package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/slimview/internal/errors"
)

// ValidatePath cleans path and returns its absolute form.
func ValidatePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.ErrInvalidPath(path).WithContext("reason", "path cannot be empty")
	}
	if strings.ContainsAny(path, "\x00\n\r") {
		return "", errors.ErrInvalidPath(path).WithContext("reason", "path contains control characters")
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		e := errors.ErrInvalidPath(path)
		e.Cause = err
		return "", e
	}

	return abs, nil
}

// ValidateSourceFile checks that path names an existing regular file with
// one of the allowed extensions and returns its absolute path.
func ValidateSourceFile(path string, allowedExtensions []string) (string, error) {
	abs, err := ValidatePath(path)
	if err != nil {
		return "", err
	}

	if err := ValidateFileExtension(abs, allowedExtensions); err != nil {
		e := errors.ErrInvalidPath(path)
		e.Cause = err
		return "", e
	}

	info, err := os.Stat(abs)
	if err != nil {
		e := errors.ErrInvalidPath(path)
		e.Cause = err
		return "", e
	}
	if !info.Mode().IsRegular() {
		return "", errors.ErrInvalidPath(path).WithContext("reason", "not a regular file")
	}

	return abs, nil
}

// ValidateFileExtension validates file extensions against an allowlist.
func ValidateFileExtension(filename string, allowedExtensions []string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return fmt.Errorf("file must have an extension")
	}

	for _, allowed := range allowedExtensions {
		if ext == strings.ToLower(allowed) {
			return nil
		}
	}

	return fmt.Errorf("file extension '%s' is not allowed", ext)
}

// ValidateArgument validates a command line argument to prevent injection attacks.
func ValidateArgument(arg string) error {
	dangerous := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\\", "\"", "'"}
	for _, char := range dangerous {
		if strings.Contains(arg, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if strings.Contains(arg, "..") {
		return fmt.Errorf("contains path traversal: %s", arg)
	}

	return nil
}

// ValidateCommand validates a command name against an allowlist.
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}

	if !allowedCommands[command] {
		return fmt.Errorf("command '%s' is not allowed", command)
	}

	if err := ValidateArgument(command); err != nil {
		return fmt.Errorf("invalid command '%s': %w", command, err)
	}

	return nil
}

// SanitizeInput removes null bytes and control characters other than
// common whitespace.
func SanitizeInput(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var sanitized strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' || r == '\r' {
			sanitized.WriteRune(r)
		}
	}

	return sanitized.String()
}
