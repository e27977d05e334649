// Package tokensource turns Jimeng session tokens into authenticated HTTP
// transports.
//
// A caller presents a comma separated set of session tokens. One token is
// picked at random per external call and wrapped in an oauth2.TokenSource;
// Transport injects it as session cookies on requests to the upstream hosts:
//
//	tokens := tokensource.SplitTokens(r.Header.Get("Authorization"))
//	token := tokensource.Pick(tokens, rand.IntN)
//	rt := tokensource.NewTransport(tokensource.NewSessionSource(token), nil)
//	client, err := jimeng.NewClient(rt)
//
// Session renewal is out of scope: tokens are used exactly as supplied.
package tokensource
