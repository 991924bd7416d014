// Package buffer is a client for the Buffer social media scheduling API.
//
// A Session carries the OAuth application identity and the access token. A
// Client resolves caller paths such as "/profiles/4eb854340acb04e870000010"
// against a fixed endpoint table, picks the HTTP method from the table and
// sends the call with the session token attached:
//
//	sess := buffer.NewSession(buffer.OAuthConfig{ClientID: id, ClientSecret: secret, CallbackURL: cb}, store)
//	client := buffer.NewClient(sess)
//	sess.SetAuthorizationCode(buffer.CodeFromRequest(r))
//	if _, err := client.Authenticate(ctx); err != nil { ... }
//	resp, err := client.Call(ctx, "/profiles", nil)
//
// Failed calls return *APIError. Paths that match no endpoint fail with the
// invalid-endpoint reason before any request is made.
package buffer
