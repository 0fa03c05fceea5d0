package upstream

import "context"

type credentialsKey struct{}

// AttachCredentialsToContext makes every call made with c use creds instead
// of the client's own credentials.
func AttachCredentialsToContext(c context.Context, creds Credentials) context.Context {
	return context.WithValue(c, credentialsKey{}, creds)
}

func CredentialsFromContext(c context.Context) (Credentials, bool) {
	if c == nil {
		return Credentials{}, false
	}
	creds, ok := c.Value(credentialsKey{}).(Credentials)
	return creds, ok
}
