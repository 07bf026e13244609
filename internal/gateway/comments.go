package gateway

import (
	"context"
	"strings"

	"foro/internal/core"
	"foro/internal/docstore"
	"foro/internal/log"
)

func commentsPath(eventID string) string {
	return docstore.SubPath(core.EventsCollection, eventID, core.CommentsCollection)
}

var oldestFirst = docstore.Query{}.Order(core.KeyTimestamp, false)

func decodeComments(eventID string) func([]docstore.Snapshot) []core.Comment {
	return decodeAll(func(s docstore.Snapshot) core.Comment {
		return core.CommentFromDocument(eventID, s.ID, s.Data)
	})
}

// AddComment posts text on the event as the session user.
func (g *Gateway) AddComment(ctx context.Context, eventID, text string) (core.Comment, error) {
	eventID, err := requireID("eventId", eventID)
	if err != nil {
		return core.Comment{}, err
	}
	if err := core.ValidateCommentText(text); err != nil {
		return core.Comment{}, err
	}
	userID, err := g.currentUser()
	if err != nil {
		return core.Comment{}, err
	}

	c := core.Comment{
		EventID:   eventID,
		UserID:    userID,
		UserEmail: g.currentEmail(),
		Text:      strings.TrimSpace(text),
		Timestamp: g.millis(),
	}
	path := commentsPath(eventID)
	id, err := g.store.Create(ctx, path, c.ToDocument())
	if err != nil {
		g.logFailure(ctx, "Failed to add comment", log.OpCreate, path, "", err)
		return core.Comment{}, storeErr(log.OpCreate, path, err)
	}
	c.ID = id
	g.logger.InfoContext(ctx, "Comment added",
		log.FieldCollection, path, log.FieldDocumentID, id, log.FieldUserID, userID)
	return c, nil
}

// ListComments returns the event's comments, oldest first.
func (g *Gateway) ListComments(ctx context.Context, eventID string) ([]core.Comment, error) {
	eventID, err := requireID("eventId", eventID)
	if err != nil {
		return nil, err
	}
	path := commentsPath(eventID)
	snaps, err := g.store.Query(ctx, path, oldestFirst)
	if err != nil {
		return nil, storeErr(log.OpQuery, path, err)
	}
	return decodeComments(eventID)(snaps), nil
}

func (g *Gateway) SubscribeComments(ctx context.Context, eventID string) (*Stream[core.Comment], error) {
	eventID, err := requireID("eventId", eventID)
	if err != nil {
		return nil, err
	}
	return watch(ctx, g, commentsPath(eventID), oldestFirst, decodeComments(eventID))
}
