package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lanify/monitor/internal/alert"
)

type pollTransport struct{}

func (pollTransport) Name() string { return TransportPolling }

func (pollTransport) Dial(ctx context.Context, endpoint string, opts Options) (Stream, error) {
	base, err := httpBase(endpoint)
	if err != nil {
		return nil, err
	}
	s := &pollStream{
		base:  base,
		token: opts.Token,
		wait:  opts.PollWait,
		client: &http.Client{
			// Long-poll requests are bounded by their context plus the wait.
			Timeout: opts.PollWait + opts.Timeout,
		},
	}

	var hs alert.Handshake
	if err := s.get(ctx, "/api/handshake", &hs); err != nil {
		return nil, err
	}
	s.seq = hs.Seq
	return s, nil
}

type pollStream struct {
	base    string
	token   string
	wait    time.Duration
	client  *http.Client
	seq     uint64
	pending []alert.Envelope
}

func (s *pollStream) Next(ctx context.Context) (alert.Envelope, error) {
	for len(s.pending) == 0 {
		q := url.Values{}
		q.Set("after", strconv.FormatUint(s.seq, 10))
		q.Set("wait", s.wait.String())

		var batch []alert.Envelope
		if err := s.get(ctx, "/api/alerts/poll?"+q.Encode(), &batch); err != nil {
			return alert.Envelope{}, err
		}
		// The server only answers with entries past the cursor it used, which
		// restarts from zero when ours is ahead of it. Resume from the batch.
		if len(batch) > 0 {
			s.seq = batch[len(batch)-1].Seq
		}
		s.pending = batch
	}
	env := s.pending[0]
	s.pending = s.pending[1:]
	return env, nil
}

func (s *pollStream) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *pollStream) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+path, nil)
	if err != nil {
		return err
	}
	req.Header = authHeader(s.token)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
