/*
Package handler provides the relay's HTTP handlers and routing.

This file implements one-shot name registration, which adds a user to the roster
without opening a socket and without notifying connected clients.
*/
package handler

import (
	"net/http"

	"chatrelay/internal/pkg/req"
	"chatrelay/internal/pkg/resp"
)

// NewUserInput is the body of POST /new-user.
type NewUserInput struct {
	Name string `json:"name"`
}

// HandleNewUser registers a display name.
// 400 when the name is missing, 409 when it is taken, 200 with the new user otherwise.
func HandleNewUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input NewUserInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		newUser, customErr := deps.Registry.PreRegister(input.Name)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": newUser,
		})
	}
}
