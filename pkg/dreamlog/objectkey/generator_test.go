package objectkey_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/objectkey"
)

func TestUploadKeyDeterministic(t *testing.T) {
	g := objectkey.New()
	userID := uuid.New()
	dreamID := uuid.New()

	k1 := g.UploadKey(userID, dreamID, 0, "sunset.jpg")
	k2 := g.UploadKey(userID, dreamID, 0, "sunset.jpg")
	assert.Equal(t, k1, k2, "retried uploads must hit the same key")

	k3 := g.UploadKey(userID, dreamID, 1, "sunset.jpg")
	assert.NotEqual(t, k1, k3, "different positions get different keys")

	assert.True(t, strings.HasPrefix(k1, fmt.Sprintf("users/%s/dreams/", userID)))
}

func TestPresignKeyUnique(t *testing.T) {
	g := objectkey.New()
	userID := uuid.New()
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	k1 := g.PresignKey(userID, "a.jpg", now)
	k2 := g.PresignKey(userID, "a.jpg", now)
	assert.NotEqual(t, k1, k2)
	assert.Contains(t, k1, "users/"+userID.String()+"/dreams/2024/03/09/")
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.JPG", "photo.jpg"},
		{"my photo (1).png", "my_photo__1_.png"},
		{"../../etc/passwd", "______etc_passwd"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, objectkey.SanitizeFileName(tt.in))
	}
}
