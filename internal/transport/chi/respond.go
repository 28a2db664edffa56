package chi

import (
	"encoding/json"
	"net/http"
)

// errorCode is the machine-readable error discriminator in error responses.
type errorCode string

const (
	codeBadRequest             errorCode = "bad_request"
	codeValidationFailed       errorCode = "validation_failed"
	codeNotFound               errorCode = "not_found"
	codeFileTooLarge           errorCode = "file_too_large"
	codeQueueFull              errorCode = "queue_full"
	codeEmbeddingProviderError errorCode = "embedding_provider_error"
	codeChatProviderError      errorCode = "chat_provider_error"
	codeVectorStoreError       errorCode = "vector_store_error"
	codeInternalError          errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
