package controllers

import (
	"selene/chat"
	"selene/ratelimit"
)

// Pipeline wiring, set once from main before the router starts serving.
var (
	chatStore    *chat.Store
	orchestrator *chat.Orchestrator
	limiter      *ratelimit.Limiter
	notifier     chat.Notifier
)

func SetPipeline(store *chat.Store, orch *chat.Orchestrator, lim *ratelimit.Limiter, n chat.Notifier) {
	chatStore = store
	orchestrator = orch
	limiter = lim
	notifier = n
}
