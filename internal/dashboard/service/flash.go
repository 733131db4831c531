package service

import (
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/cache"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/config"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/dashboard/domain"
)

// Flashes carries one message per browser across a redirect.
type Flashes struct {
	store    cache.Cache[string, domain.Flash]
	settings *config.DashboardHolder
}

func NewFlashes(settings *config.DashboardHolder) *Flashes {
	return &Flashes{store: cache.NewTTLCache[string, domain.Flash](), settings: settings}
}

func (f *Flashes) Put(sid string, flash domain.Flash) {
	if sid == "" || flash.Message == "" {
		return
	}
	f.store.Set(sid, flash, f.settings.Get().FlashTTL)
}

// Pop returns and clears the pending message for sid.
func (f *Flashes) Pop(sid string) (domain.Flash, bool) {
	flash, ok := f.store.Get(sid)
	if ok {
		f.store.Delete(sid)
	}
	return flash, ok
}
