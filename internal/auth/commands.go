package auth

import (
	"context"
	"errors"

	"github.com/zjrosen/dispatch/internal/command"
)

// Category groups the session commands.
const Category = "auth"

// Commands returns the session management commands backed by adapter.
// auth-sign-in and auth-status must be excluded from the auth
// middleware or nobody could ever sign in.
func Commands(adapter Adapter) []*command.Definition {
	return []*command.Definition{
		newSignInCommand(adapter),
		newSignOutCommand(adapter),
		newStatusCommand(adapter),
	}
}

func newSignInCommand(adapter Adapter) *command.Definition {
	return command.NewDefinition("auth-sign-in").
		Description("Establish a session from a token").
		Category(Category).
		Tags("auth", "write").
		Schema(command.NewObjectSchema(
			command.Field{Name: "token", Type: command.FieldString, Description: "Bearer token", Required: true},
		)).
		Handler(func(ctx context.Context, input any, _ *command.ExecutionContext) command.Result {
			args := input.(map[string]any)
			token, _ := args["token"].(string)

			session, err := adapter.SignIn(ctx, Options{Token: token})
			if err != nil {
				if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrNoToken) {
					return command.Failure(command.Unauthorized("Invalid or missing token"))
				}
				return command.Failure(command.Internal(err.Error()))
			}
			return command.Success(map[string]any{
				"user":   session.User,
				"status": string(StatusAuthenticated),
			}, command.WithReasoning("Signed in as "+session.User.ID))
		}).
		Mutation().
		ErrorCodes(command.CodeUnauthorized).
		MustBuild()
}

func newSignOutCommand(adapter Adapter) *command.Definition {
	return command.NewDefinition("auth-sign-out").
		Description("Tear down the current session").
		Category(Category).
		Tags("auth", "write").
		Schema(command.EmptySchema()).
		Handler(func(ctx context.Context, _ any, _ *command.ExecutionContext) command.Result {
			if err := adapter.SignOut(ctx); err != nil {
				return command.Failure(command.Internal(err.Error()))
			}
			return command.Success(map[string]any{"signedOut": true})
		}).
		Mutation().
		MustBuild()
}

func newStatusCommand(adapter Adapter) *command.Definition {
	return command.NewDefinition("auth-status").
		Description("Report the current session state").
		Category(Category).
		Tags("auth", "read", "safe").
		Schema(command.EmptySchema()).
		Handler(func(ctx context.Context, _ any, _ *command.ExecutionContext) command.Result {
			return command.Success(adapter.GetSession(ctx))
		}).
		MustBuild()
}
