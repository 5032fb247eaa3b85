package mq

import (
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_SendMessage(t *testing.T) {
	sp := mocks.NewSyncProducer(t, NewSaramaConfig())
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"adoption_id":42}` {
			return errors.New("unexpected payload: " + string(val))
		}
		return nil
	})

	p := NewProducer(sp)
	require.NoError(t, p.SendMessage("petadopt.adoption.created", "42", `{"adoption_id":42}`))
	require.NoError(t, p.Close())
}

func TestProducer_SendMessageFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, NewSaramaConfig())
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducer(sp)
	err := p.SendMessage("topic", "key", "value")
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestNewSaramaConfig(t *testing.T) {
	cfg := NewSaramaConfig()
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.True(t, cfg.Producer.Return.Successes)
	assert.NoError(t, cfg.Validate())
}
