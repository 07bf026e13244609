package gateway

import (
	"context"
	"errors"

	"foro/internal/aggregate"
	"foro/internal/core"
	"foro/internal/docstore"
	"foro/internal/log"
)

func attendancePath(eventID string) string {
	return docstore.SubPath(core.EventsCollection, eventID, core.AttendanceCollection)
}

func decodeAttendance(eventID string) func([]docstore.Snapshot) []core.Attendance {
	return decodeAll(func(s docstore.Snapshot) core.Attendance {
		return core.AttendanceFromDocument(eventID, s.ID, s.Data)
	})
}

// ToggleAttendance flips the session user's attendance and reports whether
// they are attending afterwards.
func (g *Gateway) ToggleAttendance(ctx context.Context, eventID string) (bool, error) {
	eventID, err := requireID("eventId", eventID)
	if err != nil {
		return false, err
	}
	userID, err := g.currentUser()
	if err != nil {
		return false, err
	}

	path := attendancePath(eventID)
	_, err = g.store.Get(ctx, path, userID)
	switch {
	case err == nil:
		if err := g.store.Delete(ctx, path, userID); err != nil {
			g.logFailure(ctx, "Failed to remove attendance", log.OpDelete, path, userID, err)
			return true, storeErr(log.OpDelete, path, err)
		}
		g.logger.InfoContext(ctx, "Attendance removed", log.FieldCollection, path, log.FieldUserID, userID)
		return false, nil
	case errors.Is(err, core.ErrNotFound):
		a := core.Attendance{EventID: eventID, UserID: userID, UserEmail: g.currentEmail(), Timestamp: g.millis()}
		if err := g.store.Set(ctx, path, userID, a.ToDocument()); err != nil {
			g.logFailure(ctx, "Failed to add attendance", log.OpUpdate, path, userID, err)
			return false, storeErr(log.OpUpdate, path, err)
		}
		g.logger.InfoContext(ctx, "Attendance added", log.FieldCollection, path, log.FieldUserID, userID)
		return true, nil
	default:
		return false, storeErr(log.OpRead, path, err)
	}
}

func (g *Gateway) ListAttendance(ctx context.Context, eventID string) ([]core.Attendance, error) {
	eventID, err := requireID("eventId", eventID)
	if err != nil {
		return nil, err
	}
	path := attendancePath(eventID)
	snaps, err := g.store.Query(ctx, path, oldestFirst)
	if err != nil {
		return nil, storeErr(log.OpQuery, path, err)
	}
	return decodeAttendance(eventID)(snaps), nil
}

func (g *Gateway) SubscribeAttendance(ctx context.Context, eventID string) (*Stream[core.Attendance], error) {
	eventID, err := requireID("eventId", eventID)
	if err != nil {
		return nil, err
	}
	return watch(ctx, g, attendancePath(eventID), oldestFirst, decodeAttendance(eventID))
}

func (g *Gateway) AttendeeCount(ctx context.Context, eventID string) (int, error) {
	attendance, err := g.ListAttendance(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return aggregate.AttendeeCount(attendance), nil
}
