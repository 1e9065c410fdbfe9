package worker

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/famomatic/vot/internal/wire"
)

// RequestTranslation asks the worker to translate the given video.
// A nil result with a nil error means the worker answered non-200 or with an
// empty body; the caller retries later. A source language of "" or "auto"
// (any case) requests auto-detection.
func (c *Client) RequestTranslation(
	ctx context.Context,
	videoURL string, duration float64,
	sourceLang, targetLang, videoTitle string,
	useLiveVoices bool,
) (*TranslationResult, error) {
	sess, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	if duration <= 0 {
		duration = defaultDuration
	}
	if strings.EqualFold(sourceLang, "auto") {
		sourceLang = ""
	}

	body := wire.EncodeTranslationRequest(wire.TranslationRequest{
		URL:              videoURL,
		FirstRequest:     true,
		Duration:         duration,
		Language:         sourceLang,
		ResponseLanguage: targetLang,
		VideoTitle:       videoTitle,
		UseLiveVoices:    useLiveVoices,
	})

	respBytes, err := c.sendProto(ctx, "POST", translatePath, body, protoAuth{
		signature: computeHMACHex(body),
		secretKey: sess.secretKey,
		token:     signToken(sess.uuid, translatePath),
	})
	if err != nil {
		return nil, err
	}
	if len(respBytes) == 0 {
		return nil, nil
	}

	decoded := wire.DecodeTranslationResponse(respBytes)
	return &TranslationResult{
		Status:        Status(decoded.Status),
		AudioURL:      decoded.URL,
		RemainingTime: decoded.RemainingTime,
		TranslationID: decoded.TranslationID,
		Message:       decoded.Message,
	}, nil
}

// SendFailedAudio reports a previously requested audio asset as unusable.
// Best-effort: failures are logged and swallowed.
func (c *Client) SendFailedAudio(ctx context.Context, videoURL string) {
	if _, err := c.ensureSession(ctx); err != nil {
		c.logger.Warn("fail-audio: session unavailable", zap.String("url", videoURL), zap.Error(err))
		return
	}
	body := struct {
		VideoURL string `json:"video_url"`
	}{VideoURL: videoURL}
	if err := c.sendJSON(ctx, failAudioPath, body); err != nil {
		c.logger.Warn("fail-audio request failed", zap.String("url", videoURL), zap.Error(err))
	}
}

// SendEmptyAudio tells the worker the audio asset for translationID was
// empty so it generates a new one. Best-effort: failures are logged and
// swallowed.
func (c *Client) SendEmptyAudio(ctx context.Context, videoURL, translationID string) {
	sess, err := c.ensureSession(ctx)
	if err != nil {
		c.logger.Warn("empty-audio: session unavailable", zap.String("url", videoURL), zap.Error(err))
		return
	}

	body := wire.EncodeEmptyAudioRequest(translationID, videoURL)
	_, err = c.sendProto(ctx, "PUT", audioPath, body, protoAuth{
		signature: computeHMACHex(body),
		secretKey: sess.secretKey,
		token:     signToken(sess.uuid, audioPath),
	})
	if err != nil {
		c.logger.Warn("empty-audio request failed", zap.String("url", videoURL), zap.Error(err))
	}
}
