package core

import (
	"strings"
	"time"
)

// Collection names and document keys as persisted.
const (
	ExpensesCollection   = "expenses"
	EventsCollection     = "events"
	HistoryCollection    = "history"
	UsersCollection      = "users"
	CommentsCollection   = "comments"
	AttendanceCollection = "attendance"
	RatingsCollection    = "ratings"

	KeyUserID      = "userId"
	KeyName        = "name"
	KeyAmount      = "amount"
	KeyCategory    = "category"
	KeyDate        = "date"
	KeyTimestamp   = "timestamp"
	KeyTitle       = "title"
	KeyTime        = "time"
	KeyLocation    = "location"
	KeyDescription = "description"
	KeyEmail       = "email"
	KeyUserEmail   = "userEmail"
	KeyText        = "text"
	KeyAction      = "action"
	KeyExpenseName = "expenseName"
	KeyScore       = "score"
	KeyRole        = "role"
)

const maxNameLength = 200

// Action is the kind of expense mutation a history entry records.
type Action string

const (
	ActionAdd    Action = "ADD"
	ActionDelete Action = "DELETE"
)

// Role is a forum user's permission level.
type Role string

const (
	RoleNormal Role = "normal"
	RoleAdmin  Role = "admin"
)

type (
	// Expense is a personal expense. Timestamp is the creation time in unix
	// milliseconds.
	Expense struct {
		ID        string
		UserID    string
		Name      string
		Amount    float64
		Category  Category
		Date      string
		Timestamp int64
	}

	// NewExpense is user input for an expense before the store assigns an id.
	NewExpense struct {
		Name     string
		Amount   float64
		Category Category
		Date     string
	}

	Event struct {
		ID          string
		Title       string
		Date        string
		Time        string
		Location    string
		Description string
	}

	// Comment belongs to the event named by EventID, which is the parent
	// path and is not stored in the document.
	Comment struct {
		ID        string
		EventID   string
		UserID    string
		UserEmail string
		Text      string
		Timestamp int64
	}

	HistoryEntry struct {
		ID          string
		UserID      string
		Action      Action
		ExpenseName string
		Amount      float64
		Category    Category
		Date        string
		Timestamp   int64
	}

	// Attendance marks a user as attending an event. Its document id is
	// the user id.
	Attendance struct {
		EventID   string
		UserID    string
		UserEmail string
		Timestamp int64
	}

	// Rating is a user's 1..5 score for an event. Its document id is the
	// user id, so resubmission overwrites.
	Rating struct {
		EventID   string
		UserID    string
		Score     int
		Timestamp int64
	}

	UserProfile struct {
		ID    string
		Email string
		Role  Role
	}
)

// Millis converts t to unix milliseconds.
func Millis(t time.Time) int64 { return t.UnixMilli() }

func (n NewExpense) Validate() error {
	name := strings.TrimSpace(n.Name)
	if name == "" {
		return invalid("name", ErrEmptyName)
	}
	if len(name) > maxNameLength {
		return invalid("name", ErrNameTooLong)
	}
	if err := ValidateAmount(n.Amount); err != nil {
		return err
	}
	if !n.Category.IsValid() {
		return invalid("category", ErrInvalidCategory)
	}
	return ValidateDate(n.Date)
}

// Validate checks the user-editable fields of a stored expense.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return invalid("userId", ErrEmptyUserID)
	}
	return NewExpense{Name: e.Name, Amount: e.Amount, Category: e.Category, Date: e.Date}.Validate()
}

func (e Expense) ToDocument() Document {
	return Document{
		KeyUserID:    e.UserID,
		KeyName:      e.Name,
		KeyAmount:    e.Amount,
		KeyCategory:  string(e.Category),
		KeyDate:      e.Date,
		KeyTimestamp: e.Timestamp,
	}
}

// ExpenseFromDocument never fails; missing fields take their zero value.
func ExpenseFromDocument(id string, d Document) Expense {
	return Expense{
		ID:        id,
		UserID:    d.GetString(KeyUserID),
		Name:      d.GetString(KeyName),
		Amount:    d.GetFloat(KeyAmount),
		Category:  Category(d.GetString(KeyCategory)),
		Date:      d.GetString(KeyDate),
		Timestamp: d.GetInt(KeyTimestamp),
	}
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return invalid("title", ErrEmptyTitle)
	}
	return ValidateDate(e.Date)
}

func (e Event) ToDocument() Document {
	return Document{
		KeyTitle:       e.Title,
		KeyDate:        e.Date,
		KeyTime:        e.Time,
		KeyLocation:    e.Location,
		KeyDescription: e.Description,
	}
}

func EventFromDocument(id string, d Document) Event {
	return Event{
		ID:          id,
		Title:       d.GetString(KeyTitle),
		Date:        d.GetString(KeyDate),
		Time:        d.GetString(KeyTime),
		Location:    d.GetString(KeyLocation),
		Description: d.GetString(KeyDescription),
	}
}

// ValidateCommentText rejects blank comments.
func ValidateCommentText(text string) error {
	if strings.TrimSpace(text) == "" {
		return invalid("text", ErrEmptyText)
	}
	return nil
}

func (c Comment) ToDocument() Document {
	return Document{
		KeyUserID:    c.UserID,
		KeyEmail:     c.UserEmail,
		KeyText:      c.Text,
		KeyTimestamp: c.Timestamp,
	}
}

func CommentFromDocument(eventID, id string, d Document) Comment {
	return Comment{
		ID:        id,
		EventID:   eventID,
		UserID:    d.GetString(KeyUserID),
		UserEmail: d.GetString(KeyEmail),
		Text:      d.GetString(KeyText),
		Timestamp: d.GetInt(KeyTimestamp),
	}
}

func (h HistoryEntry) ToDocument() Document {
	return Document{
		KeyUserID:      h.UserID,
		KeyAction:      string(h.Action),
		KeyExpenseName: h.ExpenseName,
		KeyAmount:      h.Amount,
		KeyCategory:    string(h.Category),
		KeyDate:        h.Date,
		KeyTimestamp:   h.Timestamp,
	}
}

func HistoryEntryFromDocument(id string, d Document) HistoryEntry {
	return HistoryEntry{
		ID:          id,
		UserID:      d.GetString(KeyUserID),
		Action:      Action(d.GetString(KeyAction)),
		ExpenseName: d.GetString(KeyExpenseName),
		Amount:      d.GetFloat(KeyAmount),
		Category:    Category(d.GetString(KeyCategory)),
		Date:        d.GetString(KeyDate),
		Timestamp:   d.GetInt(KeyTimestamp),
	}
}

func (a Attendance) ToDocument() Document {
	return Document{
		KeyUserID:    a.UserID,
		KeyUserEmail: a.UserEmail,
		KeyTimestamp: a.Timestamp,
	}
}

// AttendanceFromDocument falls back to the document id when the userId
// field is missing, since attendance documents are keyed by user.
func AttendanceFromDocument(eventID, id string, d Document) Attendance {
	userID := d.GetString(KeyUserID)
	if userID == "" {
		userID = id
	}
	return Attendance{
		EventID:   eventID,
		UserID:    userID,
		UserEmail: d.GetString(KeyUserEmail),
		Timestamp: d.GetInt(KeyTimestamp),
	}
}

// ValidateScore checks a rating is an integer in [1,5].
func ValidateScore(score int) error {
	if score < 1 || score > 5 {
		return invalid("score", ErrInvalidScore)
	}
	return nil
}

func (r Rating) ToDocument() Document {
	return Document{
		KeyUserID:    r.UserID,
		KeyScore:     int64(r.Score),
		KeyTimestamp: r.Timestamp,
	}
}

func RatingFromDocument(eventID, id string, d Document) Rating {
	userID := d.GetString(KeyUserID)
	if userID == "" {
		userID = id
	}
	return Rating{
		EventID:   eventID,
		UserID:    userID,
		Score:     int(d.GetInt(KeyScore)),
		Timestamp: d.GetInt(KeyTimestamp),
	}
}

func (u UserProfile) ToDocument() Document {
	return Document{
		KeyEmail: u.Email,
		KeyRole:  string(u.Role),
	}
}

func UserProfileFromDocument(id string, d Document) UserProfile {
	return UserProfile{
		ID:    id,
		Email: d.GetString(KeyEmail),
		Role:  Role(d.GetString(KeyRole)),
	}
}

// CanManageEvents reports whether the role may edit and delete events.
func (r Role) CanManageEvents() bool { return r == RoleAdmin }
