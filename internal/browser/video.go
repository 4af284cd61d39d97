package browser

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/alvarorichard/ceddoskip/internal/media"
	"github.com/pkg/errors"
)

const videoSelector = `(document.querySelector('video.html5-main-video') || document.querySelector('video'))`

const stateScript = `() => {
	const v = ` + videoSelector + `;
	if (!v) return null;
	return {
		t: v.currentTime,
		d: isFinite(v.duration) ? v.duration : 0,
		r: v.readyState,
		p: v.paused,
		e: v.ended,
		w: v.videoWidth,
		h: v.videoHeight,
	};
}`

// The canvas is tainted for cross-origin media without CORS; toDataURL then
// throws and the script returns "".
const snapshotScript = `() => {
	const v = ` + videoSelector + `;
	if (!v || !v.videoWidth) return '';
	const c = document.createElement('canvas');
	c.width = v.videoWidth;
	c.height = v.videoHeight;
	c.getContext('2d').drawImage(v, 0, 0, c.width, c.height);
	try { return c.toDataURL('image/png'); } catch (e) { return ''; }
}`

const seekScript = `(t) => {
	const v = ` + videoSelector + `;
	if (v) v.currentTime = t;
}`

// Video is the page's main <video> element.
type Video struct {
	d driver
}

var _ media.VisibleSurface = (*Video)(nil)

type videoState struct {
	time, duration float64
	ready          media.ReadyState
	paused, ended  bool
	width, height  int
}

func (v *Video) eval(ctx context.Context, script string, arg ...interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v.d.IsClosed() {
		return nil, media.ErrClosed
	}
	res, err := v.d.Evaluate(script, arg...)
	if err != nil {
		if v.d.IsClosed() {
			return nil, media.ErrClosed
		}
		return nil, errors.Wrap(err, "evaluating video script")
	}
	return res, nil
}

// state reads every property in one round trip. A page without a video
// reports the zero state at HaveNothing.
func (v *Video) state(ctx context.Context) (videoState, error) {
	res, err := v.eval(ctx, stateScript)
	if err != nil {
		return videoState{}, err
	}
	m, ok := res.(map[string]interface{})
	if !ok {
		return videoState{}, nil
	}
	p, _ := m["p"].(bool)
	e, _ := m["e"].(bool)
	return videoState{
		time:     number(m["t"]),
		duration: number(m["d"]),
		ready:    media.ReadyState(number(m["r"])),
		paused:   p,
		ended:    e,
		width:    int(number(m["w"])),
		height:   int(number(m["h"])),
	}, nil
}

// number accepts the numeric types playwright hands back for JS numbers.
func number(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func (v *Video) Dimensions(ctx context.Context) (int, int, error) {
	s, err := v.state(ctx)
	return s.width, s.height, err
}

// Snapshot copies the current frame through a canvas.
func (v *Video) Snapshot(ctx context.Context) (image.Image, error) {
	res, err := v.eval(ctx, snapshotScript)
	if err != nil {
		return nil, err
	}
	return decodeDataURL(res)
}

func decodeDataURL(res interface{}) (image.Image, error) {
	s, _ := res.(string)
	_, payload, ok := strings.Cut(s, ";base64,")
	if !ok || payload == "" {
		return nil, media.ErrNoFrame
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode frame data: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode frame png: %w", err)
	}
	return img, nil
}

func (v *Video) CurrentTime(ctx context.Context) (float64, error) {
	s, err := v.state(ctx)
	return s.time, err
}

func (v *Video) Duration(ctx context.Context) (float64, error) {
	s, err := v.state(ctx)
	return s.duration, err
}

func (v *Video) ReadyState(ctx context.Context) (media.ReadyState, error) {
	s, err := v.state(ctx)
	return s.ready, err
}

func (v *Video) Paused(ctx context.Context) (bool, error) {
	s, err := v.state(ctx)
	return s.paused, err
}

func (v *Video) Ended(ctx context.Context) (bool, error) {
	s, err := v.state(ctx)
	return s.ended, err
}

func (v *Video) Seek(ctx context.Context, seconds float64) error {
	_, err := v.eval(ctx, seekScript, seconds)
	return err
}
