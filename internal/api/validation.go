package api

import (
	"fmt"
	"regexp"
)

var (
	// sessionIDPattern matches the short uuid form the orchestrator mints.
	sessionIDPattern = regexp.MustCompile(`^[a-f0-9-]{1,36}$`)

	// ownerIDPattern keeps the opaque principal printable and bounded.
	ownerIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)
)

func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid session id format")
	}
	return nil
}

func ValidateOwnerID(owner string) error {
	if owner == "" {
		return fmt.Errorf("missing %s header", ownerHeader)
	}
	if !ownerIDPattern.MatchString(owner) {
		return fmt.Errorf("invalid owner id format")
	}
	return nil
}

func validateCreateSessionRequest(req createSessionRequest) error {
	if len(req.DisplayName) > 128 {
		return fmt.Errorf("display_name must not exceed 128 characters")
	}
	return nil
}

func validateWriteRequest(req writeRequest) error {
	if req.Path == "" {
		return fmt.Errorf("path is required")
	}
	if req.Text != "" && req.ContentBase64 != "" {
		return fmt.Errorf("provide either 'text' or 'content_base64', not both")
	}
	return nil
}

func validateExecRequest(req execRequest) error {
	if req.Cmd == "" {
		return fmt.Errorf("cmd is required")
	}
	if len(req.Cmd) > 8192 {
		return fmt.Errorf("cmd must not exceed 8192 characters")
	}
	return nil
}
