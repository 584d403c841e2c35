package celery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_RequiresRedisClient(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestReplyKeyPrefix(t *testing.T) {
	assert.Equal(t, "celery-task-meta-", replyKeyPrefix)
}
