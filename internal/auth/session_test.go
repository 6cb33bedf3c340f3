package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_Lifecycle(t *testing.T) {
	session := NewSession()
	assert.False(t, session.IsAuthenticated())

	session.SetCredentials("tok-1", &User{ID: 7, FullName: "Ha Vu Dong", Phone: "0912345678", Address: "HN"})
	assert.True(t, session.IsAuthenticated())

	token, ok := session.Token()
	assert.True(t, ok)
	assert.Equal(t, "tok-1", token)

	shipping := session.DefaultShipping()
	assert.Equal(t, "Ha Vu Dong", shipping.Name)
	assert.Equal(t, "0912345678", shipping.Phone)

	session.Clear()
	assert.False(t, session.IsAuthenticated())
	assert.Nil(t, session.User())
	assert.Equal(t, "", session.DefaultShipping().Name)
}

func TestSession_InvalidateDropsToken(t *testing.T) {
	session := NewSession()
	session.SetCredentials("tok-2", &User{ID: 8})

	// 401 handling path
	session.Invalidate()

	_, ok := session.Token()
	assert.False(t, ok)
	assert.False(t, session.IsAuthenticated())
}
