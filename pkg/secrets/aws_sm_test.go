package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecretsClient struct {
	value *string
	err   error
	asked string
}

func (f *fakeSecretsClient) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.asked = aws.ToString(in.SecretId)
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: f.value}, nil
}

func TestGetSecret_DecodesJSONObject(t *testing.T) {
	fake := &fakeSecretsClient{value: aws.String(`{"user":"BankinUser","password":"12345678"}`)}
	p := &AWSSecretsManagerProvider{client: fake}

	got, err := p.GetSecret(context.Background(), "dev/bankin")
	require.NoError(t, err)
	assert.Equal(t, "dev/bankin", fake.asked)
	assert.Equal(t, "BankinUser", got["user"])
	assert.Equal(t, "12345678", got["password"])
}

func TestGetSecret_Errors(t *testing.T) {
	tests := []struct {
		name   string
		fake   *fakeSecretsClient
		errMsg string
	}{
		{name: "client error", fake: &fakeSecretsClient{err: errors.New("access denied")}, errMsg: "failed to fetch secret"},
		{name: "binary secret", fake: &fakeSecretsClient{}, errMsg: "no string value"},
		{name: "not json", fake: &fakeSecretsClient{value: aws.String("user=x")}, errMsg: "invalid secret format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &AWSSecretsManagerProvider{client: tt.fake}
			_, err := p.GetSecret(context.Background(), "dev/bankin")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
