package gateway

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"foro/internal/core"
	"foro/internal/docstore"
	"foro/internal/log"
)

// eventChildren are the sub-collections removed with their event.
var eventChildren = []string{
	core.CommentsCollection,
	core.RatingsCollection,
	core.AttendanceCollection,
}

func decodeEvent(s docstore.Snapshot) core.Event {
	return core.EventFromDocument(s.ID, s.Data)
}

// sortEvents orders events by calendar date, then title.
func sortEvents(snaps []docstore.Snapshot) []core.Event {
	events := decodeAll(decodeEvent)(snaps)
	slices.SortStableFunc(events, func(a, b core.Event) int {
		da, _ := core.ParseDate(a.Date)
		db, _ := core.ParseDate(b.Date)
		if c := cmp.Compare(da.Year, db.Year); c != 0 {
			return c
		}
		if c := cmp.Compare(da.Month, db.Month); c != 0 {
			return c
		}
		if c := cmp.Compare(da.Day, db.Day); c != 0 {
			return c
		}
		return strings.Compare(a.Title, b.Title)
	})
	return events
}

func normalizeEvent(e core.Event) core.Event {
	e.Title = strings.TrimSpace(e.Title)
	e.Date = strings.TrimSpace(e.Date)
	e.Time = strings.TrimSpace(e.Time)
	e.Location = strings.TrimSpace(e.Location)
	e.Description = strings.TrimSpace(e.Description)
	return e
}

func (g *Gateway) CreateEvent(ctx context.Context, e core.Event) (core.Event, error) {
	e = normalizeEvent(e)
	if err := e.Validate(); err != nil {
		return core.Event{}, err
	}
	id, err := g.store.Create(ctx, core.EventsCollection, e.ToDocument())
	if err != nil {
		g.logFailure(ctx, "Failed to create event", log.OpCreate, core.EventsCollection, "", err)
		return core.Event{}, storeErr(log.OpCreate, core.EventsCollection, err)
	}
	e.ID = id
	g.logger.InfoContext(ctx, "Event created", log.FieldDocumentID, id)
	return e, nil
}

// UpdateEvent overwrites the event with id without checking that it exists.
func (g *Gateway) UpdateEvent(ctx context.Context, id string, e core.Event) error {
	id, err := requireID("id", id)
	if err != nil {
		return err
	}
	e = normalizeEvent(e)
	if err := e.Validate(); err != nil {
		return err
	}
	if err := g.store.Set(ctx, core.EventsCollection, id, e.ToDocument()); err != nil {
		g.logFailure(ctx, "Failed to update event", log.OpUpdate, core.EventsCollection, id, err)
		return storeErr(log.OpUpdate, core.EventsCollection, err)
	}
	g.logger.InfoContext(ctx, "Event updated", log.FieldDocumentID, id)
	return nil
}

func (g *Gateway) GetEvent(ctx context.Context, id string) (core.Event, error) {
	id, err := requireID("id", id)
	if err != nil {
		return core.Event{}, err
	}
	doc, err := g.store.Get(ctx, core.EventsCollection, id)
	if err != nil {
		return core.Event{}, storeErr(log.OpRead, core.EventsCollection, err)
	}
	return core.EventFromDocument(id, doc), nil
}

// DeleteEvent removes the event. With cascading on, its comments, ratings and
// attendance are removed first, so a failed cascade leaves the event in
// place and the delete can be retried.
func (g *Gateway) DeleteEvent(ctx context.Context, id string) error {
	e, err := g.GetEvent(ctx, id)
	if err != nil {
		return err
	}

	if g.cascade {
		if err := g.deleteChildren(ctx, e.ID); err != nil {
			return err
		}
	}

	if err := g.store.Delete(ctx, core.EventsCollection, e.ID); err != nil {
		g.logFailure(ctx, "Failed to delete event", log.OpDelete, core.EventsCollection, e.ID, err)
		return storeErr(log.OpDelete, core.EventsCollection, err)
	}
	g.logger.InfoContext(ctx, "Event deleted", log.FieldDocumentID, e.ID)
	return nil
}

func (g *Gateway) deleteChildren(ctx context.Context, eventID string) error {
	type target struct{ path, id string }
	var targets []target
	for _, child := range eventChildren {
		path := docstore.SubPath(core.EventsCollection, eventID, child)
		snaps, err := g.store.Query(ctx, path, docstore.Query{})
		if err != nil {
			g.logFailure(ctx, "Failed to list event children", log.OpCascade, path, "", err)
			return storeErr(log.OpQuery, path, err)
		}
		for _, s := range snaps {
			targets = append(targets, target{path: path, id: s.ID})
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cascadeLimit)
	for _, t := range targets {
		t := t
		eg.Go(func() error {
			if err := g.store.Delete(egCtx, t.path, t.id); err != nil {
				return storeErr(log.OpDelete, t.path, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		g.logger.ErrorContext(ctx, "Cascade delete failed",
			log.FieldOperation, log.OpCascade,
			log.FieldDocumentID, eventID,
			log.FieldError, err)
		return err
	}

	g.logger.DebugContext(ctx, "Cascade delete finished",
		log.FieldOperation, log.OpCascade,
		log.FieldDocumentID, eventID,
		log.FieldCount, len(targets))
	return nil
}

// SubscribeEvents streams every event ordered by date, then title.
func (g *Gateway) SubscribeEvents(ctx context.Context) (*Stream[core.Event], error) {
	return watch(ctx, g, core.EventsCollection, docstore.Query{}, sortEvents)
}

func (g *Gateway) ListEvents(ctx context.Context) ([]core.Event, error) {
	snaps, err := g.store.Query(ctx, core.EventsCollection, docstore.Query{})
	if err != nil {
		return nil, storeErr(log.OpQuery, core.EventsCollection, err)
	}
	return sortEvents(snaps), nil
}
