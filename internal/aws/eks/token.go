package eks

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const (
	tokenPrefix = "k8s-aws-v1."

	// The API server accepts a token for 15 minutes after presigning.
	tokenLifetime    = 15 * time.Minute
	presignURLExpiry = "60"
	refreshBefore    = time.Minute

	clusterIDHeader = "x-k8s-aws-id"
)

type generateFunc func(ctx context.Context) (token string, expiry time.Time, err error)

// TokenProvider hands out EKS bearer tokens and regenerates them shortly
// before they expire. Safe for concurrent use.
type TokenProvider struct {
	mu       sync.Mutex
	token    string
	expiry   time.Time
	generate generateFunc
}

// NewTokenProvider creates a TokenProvider that presigns STS requests with cfg.
func NewTokenProvider(cfg aws.Config, clusterName string) *TokenProvider {
	return &TokenProvider{
		generate: func(ctx context.Context) (string, time.Time, error) {
			return presignToken(ctx, cfg, clusterName)
		},
	}
}

// Token returns the cached token while it has more than a minute left.
func (tp *TokenProvider) Token(ctx context.Context) (string, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if tp.token != "" && time.Until(tp.expiry) > refreshBefore {
		return tp.token, nil
	}

	token, expiry, err := tp.generate(ctx)
	if err != nil {
		return "", fmt.Errorf("generating EKS token: %w", err)
	}

	tp.token = token
	tp.expiry = expiry
	return tp.token, nil
}

// presignToken encodes a presigned GetCallerIdentity URL bound to the cluster
// name, the same token `aws eks get-token` prints.
func presignToken(ctx context.Context, cfg aws.Config, clusterName string) (string, time.Time, error) {
	presignClient := sts.NewPresignClient(sts.NewFromConfig(cfg))

	headers := map[string]string{
		clusterIDHeader: clusterName,
		"X-Amz-Expires": presignURLExpiry,
	}

	presigned, err := presignClient.PresignGetCallerIdentity(ctx, &sts.GetCallerIdentityInput{},
		func(po *sts.PresignOptions) {
			po.Presigner = &headerPresigner{base: po.Presigner, headers: headers}
		},
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presigning GetCallerIdentity: %w", err)
	}

	token := tokenPrefix + base64.RawURLEncoding.EncodeToString([]byte(presigned.URL))
	return token, time.Now().Add(tokenLifetime), nil
}

// headerPresigner sets extra headers on the request before it is signed so
// they are covered by the signature (aws-sdk-go-v2#1922).
type headerPresigner struct {
	base    sts.HTTPPresignerV4
	headers map[string]string
}

func (p *headerPresigner) PresignHTTP(
	ctx context.Context, credentials aws.Credentials, r *http.Request,
	payloadHash string, service string, region string, signingTime time.Time,
	optFns ...func(*v4.SignerOptions),
) (string, http.Header, error) {
	for k, v := range p.headers {
		r.Header.Set(k, v)
	}
	return p.base.PresignHTTP(ctx, credentials, r, payloadHash, service, region, signingTime, optFns...)
}

// WrapTransport adds the bearer token to every request sent through rt.
func (tp *TokenProvider) WrapTransport(rt http.RoundTripper) http.RoundTripper {
	return &bearerTransport{base: rt, provider: tp}
}

type bearerTransport struct {
	base     http.RoundTripper
	provider *TokenProvider
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.provider.Token(req.Context())
	if err != nil {
		return nil, err
	}

	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(req)
}
