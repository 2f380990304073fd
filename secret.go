package authguard

import "sync"

// SecretProvider resolves the signing/verification secret. A provider that
// cannot produce a secret makes both issuance and verification fail closed:
// a missing secret is a denial, never a bypass.
type SecretProvider interface {
	Secret() ([]byte, error)
}

// StaticSecretProvider carries a secret resolved before the process started
// serving traffic.
type StaticSecretProvider struct {
	secret []byte
}

// NewStaticSecretProvider returns a provider for an already-resolved secret.
// An empty secret is a configuration error and should abort startup.
func NewStaticSecretProvider(secret string) (*StaticSecretProvider, error) {
	if secret == "" {
		return nil, ErrSecretUnavailable
	}
	return &StaticSecretProvider{secret: []byte(secret)}, nil
}

// Secret implements SecretProvider.
func (p *StaticSecretProvider) Secret() ([]byte, error) {
	if len(p.secret) == 0 {
		return nil, ErrSecretUnavailable
	}
	return p.secret, nil
}

// LazySecretProvider resolves the secret on first use and caches the outcome
// for the process lifetime; configuration is assumed immutable once loaded,
// so a resolution failure is sticky.
type LazySecretProvider struct {
	resolve func() (string, error)
	once    sync.Once
	secret  []byte
	err     error
}

// NewLazySecretProvider wraps a configuration resolver.
func NewLazySecretProvider(resolve func() (string, error)) *LazySecretProvider {
	return &LazySecretProvider{resolve: resolve}
}

// Secret implements SecretProvider.
func (p *LazySecretProvider) Secret() ([]byte, error) {
	p.once.Do(func() {
		if p.resolve == nil {
			p.err = ErrSecretUnavailable
			return
		}

		secret, err := p.resolve()
		if err != nil || secret == "" {
			p.err = ErrSecretUnavailable
			return
		}

		p.secret = []byte(secret)
	})

	return p.secret, p.err
}
