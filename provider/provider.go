// Package provider defines the remote translator implementations.
package provider

import "github.com/ZaguanLabs/framelai"

// RemoteTranslator is the interface for remote translation backends.
// This is an alias to the main package interface for convenience.
type RemoteTranslator = framelai.RemoteTranslator

// TranslateRequest is an alias to the main package type.
type TranslateRequest = framelai.TranslateRequest

// TranslateResponse is an alias to the main package type.
type TranslateResponse = framelai.TranslateResponse
