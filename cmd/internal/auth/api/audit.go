package authapi

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// Audit events are structured log records under the "audit" group.

func (h *Handler) auditLoginFailed(ctx context.Context, ip net.IP, ua, username, reason string) {
	h.audit(ctx, "auth.login.failed", ip, ua,
		slog.String("username", username),
		slog.String("reason", reason),
	)
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID, sessionID string, ip net.IP, ua string) {
	h.audit(ctx, "auth.login.success", ip, ua,
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)
}

func (h *Handler) auditLoginRateLimited(ctx context.Context, ip net.IP, ua, username string, retryAfter time.Duration) {
	h.audit(ctx, "auth.login.rate_limited", ip, ua,
		slog.String("username", username),
		slog.Int64("retry_after_s", int64(retryAfter.Seconds())),
	)
}

func (h *Handler) auditLogout(ctx context.Context, userID, sessionID string, ip net.IP, ua string) {
	h.audit(ctx, "auth.logout", ip, ua,
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)
}

func (h *Handler) auditSignup(ctx context.Context, userID string, ip net.IP, ua string) {
	h.audit(ctx, "auth.signup", ip, ua, slog.String("user_id", userID))
}

func (h *Handler) auditVerify(ctx context.Context, userID string, ok bool, ip net.IP, ua string) {
	h.audit(ctx, "auth.verify", ip, ua,
		slog.String("user_id", userID),
		slog.Bool("ok", ok),
	)
}

func (h *Handler) auditProfileUpdated(ctx context.Context, userID string, ip net.IP, ua string) {
	h.audit(ctx, "auth.profile.updated", ip, ua, slog.String("user_id", userID))
}

func (h *Handler) audit(ctx context.Context, action string, ip net.IP, ua string, attrs ...slog.Attr) {
	if h == nil || h.log == nil {
		return
	}
	fields := make([]any, 0, len(attrs)+2)
	if ip != nil {
		fields = append(fields, slog.String("ip", ip.String()))
	}
	if ua != "" {
		fields = append(fields, slog.String("user_agent", ua))
	}
	for _, a := range attrs {
		fields = append(fields, a)
	}
	h.log.LogAttrs(ctx, slog.LevelInfo, action, slog.Group("audit", fields...))
}
