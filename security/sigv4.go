package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
)

// HeaderContentSha256 carries the hex SHA-256 of the payload.
const HeaderContentSha256 = "X-Amz-Content-Sha256"

// SigV4 signs requests for AWS services with Signature Version 4.
type SigV4 struct {
	Credentials aws.CredentialsProvider
	Service     string
	Region      string

	signer *v4.Signer
	now    func() time.Time
}

// NewSigV4 returns a SigV4 provider.
func NewSigV4(creds aws.CredentialsProvider, service, region string) (*SigV4, error) {
	if creds == nil {
		return nil, fmt.Errorf("credentials are required for aws_sigv4")
	}
	if service == "" {
		return nil, fmt.Errorf("service is required for aws_sigv4")
	}
	if region == "" {
		return nil, fmt.Errorf("region is required for aws_sigv4")
	}
	return &SigV4{
		Credentials: aws.NewCredentialsCache(creds),
		Service:     service,
		Region:      region,
		signer:      v4.NewSigner(),
		now:         time.Now,
	}, nil
}

// NewSigV4FromEnvironment resolves credentials with the default AWS chain
// (environment, shared config, IMDS).
func NewSigV4FromEnvironment(ctx context.Context, service, region string) (*SigV4, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return NewSigV4(awsCfg.Credentials, service, region)
}

// Sign hashes the payload and adds the SigV4 Authorization header.
func (s *SigV4) Sign(req *http.Request) error {
	ctx := req.Context()

	payloadHash, err := hashPayload(req)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderContentSha256, payloadHash)

	creds, err := s.Credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("unable to resolve AWS credentials: %w", err)
	}

	if err := s.signer.SignHTTP(ctx, creds, req, payloadHash, s.Service, s.Region, s.now()); err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}
	return nil
}

// hashPayload reads the body through GetBody so the request stays sendable.
func hashPayload(req *http.Request) (string, error) {
	h := sha256.New()
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return "", fmt.Errorf("request body cannot be replayed for signing")
		}
		body, err := req.GetBody()
		if err != nil {
			return "", fmt.Errorf("failed to read request body: %w", err)
		}
		defer body.Close()
		if _, err := io.Copy(h, body); err != nil {
			return "", fmt.Errorf("failed to read request body: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
