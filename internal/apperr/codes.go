// Package apperr defines the business error taxonomy shared by the service
// layer and the HTTP error handler.
package apperr

import "strconv"

// ErrorCode is a machine-readable business error code.
type ErrorCode int

const (
	ModelNotSupplied               ErrorCode = 1000
	NameAlreadyExists              ErrorCode = 1010
	UserAlreadyExists              ErrorCode = 1020
	UserWithSameEmailAlreadyExists ErrorCode = 1030
	InconsistentModel              ErrorCode = 1040
	EmptyListSupplied              ErrorCode = 1050
	InvalidFileContent             ErrorCode = 1060
	InvalidTotpCode                ErrorCode = 1070
	InvalidUri                     ErrorCode = 1080
	EmailAlreadyExists             ErrorCode = 1100
	InterventionNameAlreadyExists  ErrorCode = 1200
	ResourceNotFound               ErrorCode = 2000
	ResourceDependencyNotFound     ErrorCode = 2010
	UnauthorizedDeletion           ErrorCode = 3000
	UnauthorizedUpdate             ErrorCode = 3010
)

var codeNames = map[ErrorCode]string{
	ModelNotSupplied:               "ModelNotSupplied",
	NameAlreadyExists:              "NameAlreadyExists",
	UserAlreadyExists:              "UserAlreadyExists",
	UserWithSameEmailAlreadyExists: "UserWithSameEmailAlreadyExists",
	InconsistentModel:              "InconsistentModel",
	EmptyListSupplied:              "EmptyListSupplied",
	InvalidFileContent:             "InvalidFileContent",
	InvalidTotpCode:                "InvalidTotpCode",
	InvalidUri:                     "InvalidUri",
	EmailAlreadyExists:             "EmailAlreadyExists",
	InterventionNameAlreadyExists:  "InterventionNameAlreadyExists",
	ResourceNotFound:               "ResourceNotFound",
	ResourceDependencyNotFound:     "ResourceDependencyNotFound",
	UnauthorizedDeletion:           "UnauthorizedDeletion",
	UnauthorizedUpdate:             "UnauthorizedUpdate",
}

// IsDefined reports whether c belongs to the catalogue.
func (c ErrorCode) IsDefined() bool {
	_, ok := codeNames[c]
	return ok
}

func (c ErrorCode) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return strconv.Itoa(int(c))
}

// ParseErrorCode resolves a code name.  Unknown names map to
// InconsistentModel.
func ParseErrorCode(name string) ErrorCode {
	for c, n := range codeNames {
		if n == name {
			return c
		}
	}
	return InconsistentModel
}
