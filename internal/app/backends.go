package app

import (
	"context"

	"github.com/vk/lanepipe/internal/config"
	"github.com/vk/lanepipe/internal/localsession"
	"github.com/vk/lanepipe/internal/notify"
	"github.com/vk/lanepipe/internal/registry"
	"github.com/vk/lanepipe/internal/session"
	"github.com/vk/lanepipe/internal/tagstore"
	"github.com/vk/lanepipe/internal/temporalexec"
	"github.com/vk/lanepipe/internal/tools"
)

func (a *App) openStore() (tagstore.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s := a.pipeline.Store
	switch s.Kind {
	case config.StoreMinio:
		return tagstore.NewMinio(tagstore.MinioConfig{
			Endpoint:  s.Endpoint,
			Bucket:    s.Bucket,
			AccessKey: s.AccessKey,
			SecretKey: s.SecretKey,
			Region:    s.Region,
			UseSSL:    s.UseSSL,
			RateLimit: s.RateLimit,
			Burst:     s.Burst,
		})
	default:
		return tagstore.NewMemory(), nil
	}
}

// openNotifier returns the configured notifier and a function releasing it.
func (a *App) openNotifier(ctx context.Context) (notify.Notifier, func(), error) {
	n := a.pipeline.Notify
	if n == nil {
		return notify.Nop{}, func() {}, nil
	}
	sio, err := notify.DialSocketIO(ctx, notify.SocketIOConfig{
		URL:       n.URL,
		Namespace: n.Namespace,
		Event:     n.Event,
	})
	if err != nil {
		return nil, nil, err
	}
	return sio, func() { _ = sio.Close() }, nil
}

func (a *App) newRegistry(store tagstore.Store) *registry.Registry {
	t := a.pipeline.Tools
	return registry.New(tools.New(store, a.runner, tools.Tools{
		Bcl2fastq: t.Bcl2fastq,
		Bwa:       t.Bwa,
		Samtools:  t.Samtools,
		Java:      t.Java,
		Picard:    t.Picard,
		Fastqc:    t.Fastqc,
	}))
}

// sessionFactory selects the job platform.
func (a *App) sessionFactory() session.SessionFactory {
	p := a.pipeline.Platform
	if p.Kind != config.PlatformTemporal {
		return &localsession.SessionFactory{Workers: a.config.WorkerCount}
	}
	return &temporalexec.SessionFactory{
		Config: temporalexec.Config{
			HostPort:        p.HostPort,
			Namespace:       p.Namespace,
			TaskQueue:       p.TaskQueue,
			ActivityTimeout: p.ActivityTimeout,
			MaxAttempts:     int32(p.MaxAttempts),
		},
		EmbeddedWorker: p.EmbeddedWorker,
	}
}
