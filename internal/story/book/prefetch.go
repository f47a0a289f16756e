package book

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"storyweaver/internal/domain/story/generator"
	"storyweaver/internal/story/audio"
)

// Prefetcher fetches every page's illustration and narration in the
// background, in a single pass over the story. Requests are issued in story
// order through a rate limiter; fetches run concurrently and may complete in
// any order. A page's two fetches are independent of each other and of every
// other page. Failures are contained as sticky per-page flags and are never
// retried within the pass.
type Prefetcher struct {
	svc     generator.Service
	store   *Store
	limiter *rate.Limiter
	onAudio func(index int)
	log     *logrus.Entry
}

// NewPrefetcher wires a pipeline over store. onAudio, if non-nil, fires once
// for every page whose narration becomes ready; the viewer uses it for
// autoplay.
func NewPrefetcher(svc generator.Service, store *Store, interval time.Duration, burst int, onAudio func(int)) *Prefetcher {
	if interval <= 0 {
		interval = time.Millisecond
	}
	if burst < 1 {
		burst = 1
	}
	return &Prefetcher{
		svc:     svc,
		store:   store,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
		onAudio: onAudio,
		log:     logrus.WithField("component", "prefetch"),
	}
}

// Run issues every fetch for the story exactly once and blocks until all of
// them finish. It runs once per story, when the page list is established; it
// is never retriggered by navigation. Cancelling ctx abandons requests not
// yet issued, but never fails the pass.
func (p *Prefetcher) Run(ctx context.Context) {
	eg, egCtx := errgroup.WithContext(ctx)

	for i := 0; i < p.store.Len(); i++ {
		page, err := p.store.Page(i)
		if err != nil {
			continue
		}

		if page.ImagePrompt != "" && page.ImageURL == "" && !page.ImageErr {
			if p.limiter.Wait(egCtx) != nil {
				break
			}
			index, prompt := i, page.ImagePrompt
			p.store.Update(index, func(ps *PageState) { ps.ImageLoading = true })
			eg.Go(func() error {
				p.fetchImage(egCtx, index, prompt)
				return nil
			})
		}

		if page.Text != "" && page.Audio == nil && !page.AudioErr {
			if p.limiter.Wait(egCtx) != nil {
				break
			}
			index, text := i, page.Text
			p.store.Update(index, func(ps *PageState) { ps.AudioLoading = true })
			eg.Go(func() error {
				p.fetchAudio(egCtx, index, text)
				return nil
			})
		}
	}

	eg.Wait()
}

func (p *Prefetcher) fetchImage(ctx context.Context, index int, prompt string) {
	url, err := p.svc.GenerateImage(ctx, prompt)
	if err != nil {
		p.log.WithField("page", index).WithError(err).Warn("illustration fetch failed")
		p.store.Update(index, func(ps *PageState) {
			ps.ImageLoading = false
			ps.ImageErr = true
		})
		return
	}

	p.store.Update(index, func(ps *PageState) {
		ps.ImageLoading = false
		ps.ImageURL = url
	})
}

func (p *Prefetcher) fetchAudio(ctx context.Context, index int, text string) {
	fail := func(err error, msg string) {
		p.log.WithField("page", index).WithError(err).Warn(msg)
		p.store.Update(index, func(ps *PageState) {
			ps.AudioLoading = false
			ps.AudioErr = true
		})
	}

	payload, err := p.svc.GenerateSpeech(ctx, text)
	if err != nil {
		fail(err, "narration fetch failed")
		return
	}

	raw, err := audio.Decode(payload)
	if err != nil {
		fail(err, "narration payload malformed")
		return
	}

	buf, err := audio.DecodeAudioData(raw, audio.SampleRate, audio.Channels)
	if err != nil {
		fail(err, "narration pcm malformed")
		return
	}

	p.store.Update(index, func(ps *PageState) {
		ps.AudioLoading = false
		ps.RawAudio = raw
		ps.Audio = buf
	})

	if p.onAudio != nil {
		p.onAudio(index)
	}
}
