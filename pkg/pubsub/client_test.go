package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harvestlink/harvestlink-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/farm/topics/hl-domain-events", TopicResourceName("farm", "hl-domain-events"))
	assert.Equal(t, "projects/other/topics/x", TopicResourceName("farm", "projects/other/topics/x"))
	assert.Empty(t, TopicResourceName("", "hl-domain-events"))
	assert.Empty(t, TopicResourceName("farm", "  "))
}

func TestNewClientRequiresConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{DomainTopic: "t"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "farm"}, config.PubSubConfig{}, nil)
	assert.ErrorIs(t, err, errNoDomainTopic)
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.Nil(t, c.DomainPublisher())
	assert.Nil(t, c.Publisher("hl-domain-events"))
	assert.Nil(t, (&Client{}).DomainPublisher(), "client without a pubsub connection")
	assert.Error(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}

func TestClientOptions(t *testing.T) {
	assert.Empty(t, clientOptions(config.GCPConfig{}))
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/secrets/gcp.json"}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{
		CredentialsJSON:        `{"type":"service_account"}`,
		ApplicationCredentials: "/secrets/gcp.json",
	}), 1, "inline credentials win over the key file")
}
