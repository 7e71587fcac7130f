package handlers

import (
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/carmemo/internal/db"
	"github.com/ukydev/carmemo/internal/models"
)

// NotificationHandler manages Web Push subscriptions.
type NotificationHandler struct {
	subscriptions  db.SubscriptionCollection
	vapidPublicKey string
}

func NewNotificationHandler(subscriptions db.SubscriptionCollection, vapidPublicKey string) *NotificationHandler {
	return &NotificationHandler{subscriptions: subscriptions, vapidPublicKey: vapidPublicKey}
}

// PublicKey exposes the VAPID public key the browser subscribes with.
func (h *NotificationHandler) PublicKey(w http.ResponseWriter, r *http.Request) {
	if h.vapidPublicKey == "" {
		http.Error(w, "Push notifications are not configured", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.vapidPublicKey})
}

func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var sub models.PushSubscription
	if !decodeBody(w, r, &sub) {
		return
	}
	sub.Endpoint = strings.TrimSpace(sub.Endpoint)
	if !strings.HasPrefix(sub.Endpoint, "https://") {
		http.Error(w, "endpoint must be an https URL", http.StatusBadRequest)
		return
	}
	if sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		http.Error(w, "keys.p256dh and keys.auth are required", http.StatusBadRequest)
		return
	}
	sub.CreatedAt = time.Now()

	if err := h.subscriptions.SaveSubscription(r.Context(), sub); err != nil {
		log.WithError(err).Error("Failed to save push subscription")
		http.Error(w, "Failed to save subscription", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

func (h *NotificationHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Endpoint == "" {
		http.Error(w, "endpoint is required", http.StatusBadRequest)
		return
	}
	if err := h.subscriptions.DeleteSubscription(r.Context(), req.Endpoint); err != nil {
		log.WithError(err).Error("Failed to delete push subscription")
		http.Error(w, "Failed to remove subscription", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
