package efunc

import (
	"context"
)

// Version travels with every call so the platform can reason about old
// clients.
const Version = "0.1.0"

const (
	metaTokenID       = "x-efunc-token-id"
	metaTokenSecret   = "x-efunc-token-secret"
	metaClientVersion = "x-efunc-client-version"
)

// Token is a platform credential pair, attached to every call as metadata
// through tokenCredentials.
type Token struct {
	ID     string
	Secret string
}

func (t Token) IsZero() bool {
	return t.ID == "" && t.Secret == ""
}

func (t Token) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	md := map[string]string{
		metaClientVersion: Version,
	}
	if t.ID != "" {
		md[metaTokenID] = t.ID
	}
	if t.Secret != "" {
		md[metaTokenSecret] = t.Secret
	}
	return md, nil
}

// tokenCredentials is the PerRPCCredentials wrapper dialed into the
// connection. It insists on transport security unless the client was built
// with ClientWithInsecure, so the pair cannot leak onto a plaintext channel
// by accident while a local emulator still works.
type tokenCredentials struct {
	token  Token
	secure bool
}

func (c tokenCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return c.token.GetRequestMetadata(ctx, uri...)
}

func (c tokenCredentials) RequireTransportSecurity() bool {
	return c.secure
}
