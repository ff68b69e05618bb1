/*
Package authsdk is a Go client for the authentication service.

A Client keeps the refresh token cookie in its cookie jar, so the calling
code only ever handles the short lived access token:

	client, err := authsdk.NewClient("https://auth.example.com")
	tokens, err := client.Login(ctx, "alice@example.com", "hunter2")

	me, err := client.Me(ctx, tokens.AccessToken)

	// Rotates the refresh cookie and returns a new access token.
	tokens, err = client.Refresh(ctx)

	err = client.Logout(ctx)

Session wraps a Client and refreshes the access token on demand.

Failed calls return *APIError carrying the HTTP status and the service's
error code.
*/
package authsdk
