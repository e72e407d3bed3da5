/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/log/logtest"
)

func TestMasker_Mask(t *testing.T) {
	masker := log.NewMasker(log.MaskingConfig{Fields: log.DefaultMaskedFields}.AllRules())
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "http header",
			in:   "POST /chat/character/info/ HTTP/1.1\r\nAuthorization: Token abc123\r\nContent-Type: application/json\r\n",
			want: "POST /chat/character/info/ HTTP/1.1\r\nAuthorization: ***\r\nContent-Type: application/json\r\n",
		},
		{
			name: "json field",
			in:   `{"external_id":"x","token":"abc\"123"}`,
			want: `{"external_id":"x","token": "***"}`,
		},
		{
			name: "url encoded",
			in:   "https://example.com/?char=x&token=abc123&page=1",
			want: "https://example.com/?char=x&token=***&page=1",
		},
		{
			name: "nothing to mask",
			in:   "plain message",
			want: "plain message",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, masker.Mask(tt.in))
		})
	}
}

func TestMaskingLogger(t *testing.T) {
	recorder := logtest.NewRecorder()
	logger := log.NewMaskingLogger(recorder, log.NewMasker(log.MaskingConfig{Fields: log.DefaultMaskedFields}.AllRules()))

	logger.With(log.String("url", "/x?token=secret")).Error("request failed: password=qwerty",
		log.Error(errors.New(`upstream said {"token":"secret"}`)),
		log.Bytes("body", []byte(`{"password":"qwerty"}`)),
		log.Int("status", 502),
	)

	entry, found := recorder.FindEntry("request failed: password=***")
	require.True(t, found)

	url, ok := entry.FieldString("url")
	require.True(t, ok)
	require.Equal(t, "/x?token=***", url)

	errText, ok := entry.FieldString("error")
	require.True(t, ok)
	require.Equal(t, `upstream said {"token": "***"}`, errText)

	body, ok := entry.FieldString("body")
	require.True(t, ok)
	require.Equal(t, `{"password": "***"}`, body)

	status, ok := entry.FindField("status")
	require.True(t, ok)
	require.EqualValues(t, 502, status.Int)
}
