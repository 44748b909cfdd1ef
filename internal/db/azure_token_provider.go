package db

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// requestAzureToken exchanges any Azure credential for a PostgreSQL-scoped
// access token. Both Azure providers funnel through here.
func requestAzureToken(ctx context.Context, cred azcore.TokenCredential) (string, time.Time, error) {
	token, err := cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{AzurePostgreSQLScope},
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("azure token acquisition failed: %w", err)
	}
	return token.Token, token.ExpiresOn, nil
}

// AzureServicePrincipalProvider authenticates as a service principal via
// client secret. The usual choice for CI pipelines, where tenant, client,
// and secret arrive as environment variables.
type AzureServicePrincipalProvider struct {
	tenant     string
	client     string
	credential *azidentity.ClientSecretCredential
}

var _ TokenProvider = (*AzureServicePrincipalProvider)(nil)

// NewAzureServicePrincipalProvider builds a service principal provider.
// All three values are required; the secret is held only by the
// credential, never by the provider itself.
func NewAzureServicePrincipalProvider(tenantID, clientID, clientSecret string) (*AzureServicePrincipalProvider, error) {
	if tenantID == "" || clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("azure service principal requires tenantID, clientID, and clientSecret")
	}

	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	return &AzureServicePrincipalProvider{
		tenant:     tenantID,
		client:     clientID,
		credential: cred,
	}, nil
}

func (p *AzureServicePrincipalProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	return requestAzureToken(ctx, p.credential)
}

func (p *AzureServicePrincipalProvider) String() string {
	return fmt.Sprintf("AzureServicePrincipal(tenant=%s, client=%s)", p.tenant, p.client)
}

// AzureDefaultCredentialProvider rides DefaultAzureCredential, which walks
// the standard chain: environment variables, workload identity, managed
// identity, then the local az / azd / PowerShell logins. Covers developer
// laptops and Azure-hosted runners with the same configuration.
type AzureDefaultCredentialProvider struct {
	credential azcore.TokenCredential
}

var _ TokenProvider = (*AzureDefaultCredentialProvider)(nil)

// NewAzureDefaultCredentialProvider builds a provider on the default
// credential chain.
func NewAzureDefaultCredentialProvider() (*AzureDefaultCredentialProvider, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure default credential: %w", err)
	}
	return &AzureDefaultCredentialProvider{credential: cred}, nil
}

func (p *AzureDefaultCredentialProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	return requestAzureToken(ctx, p.credential)
}

func (p *AzureDefaultCredentialProvider) String() string {
	return "AzureDefaultCredential"
}
