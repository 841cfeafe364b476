// Package oauth implements Google sign-in on top of a goSession Store.
//
// Begin stores an anti-CSRF state under socialNounce and builds the
// authorization URL. Complete checks the returned state in constant time,
// exchanges the code with golang.org/x/oauth2 and reads the id_token claims
// with github.com/golang-jwt/jwt/v5. The session token never changes during
// the round trip; only the Store payload does.
package oauth
