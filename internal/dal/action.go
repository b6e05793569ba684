package dal

import (
	"context"
	"errors"
	"time"

	"outpost/internal/docstore"
)

// Action is one member of the closed CRUD verb set.
type Action string

const (
	ActionGetItemByID    Action = "getItemById"
	ActionGetAllItems    Action = "getAllItems"
	ActionAddItem        Action = "addItem"
	ActionSetItem        Action = "setItem"
	ActionUpdateItem     Action = "updateItem"
	ActionDeleteDocument Action = "deleteDocument"
)

// action is the strategy for one verb: its params struct doubles as the
// decode target, so adding an action means adding a type and a registry
// entry, not extending a switch.
type action interface {
	validateParams() error
	execute(ctx context.Context, store docstore.Store, now func() time.Time) (*Result, error)
}

// Result is the successful outcome of a dispatch: an HTTP status and a
// JSON-serializable body.
type Result struct {
	Status int
	Body   any
}

type idResult struct {
	ID string `json:"id"`
}

type deleteResult struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// actions maps each verb to a factory producing a fresh params struct.
var actions = map[Action]func() action{
	ActionGetItemByID:    func() action { return &getItemByIDAction{} },
	ActionGetAllItems:    func() action { return &getAllItemsAction{} },
	ActionAddItem:        func() action { return &addItemAction{} },
	ActionSetItem:        func() action { return &setItemAction{} },
	ActionUpdateItem:     func() action { return &updateItemAction{} },
	ActionDeleteDocument: func() action { return &deleteDocumentAction{} },
}

type getItemByIDAction struct {
	CollectionName string `json:"collectionName"`
	ID             string `json:"id"`
}

func (a *getItemByIDAction) validateParams() error {
	if a.CollectionName == "" || a.ID == "" {
		return errors.New("collectionName and id are required")
	}
	return nil
}

func (a *getItemByIDAction) execute(ctx context.Context, store docstore.Store, _ func() time.Time) (*Result, error) {
	rec, err := store.Get(ctx, a.CollectionName, a.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// Not-found is a valid empty result, not an error.
		return &Result{Status: 200, Body: nil}, nil
	}
	return &Result{Status: 200, Body: rec}, nil
}

type getAllItemsAction struct {
	CollectionName string `json:"collectionName"`
}

func (a *getAllItemsAction) validateParams() error {
	if a.CollectionName == "" {
		return errors.New("collectionName is required")
	}
	return nil
}

func (a *getAllItemsAction) execute(ctx context.Context, store docstore.Store, _ func() time.Time) (*Result, error) {
	items, err := store.List(ctx, a.CollectionName)
	if err != nil {
		return nil, err
	}
	return &Result{Status: 200, Body: items}, nil
}

type addItemAction struct {
	CollectionName string          `json:"collectionName"`
	Data           docstore.Record `json:"data"`
}

func (a *addItemAction) validateParams() error {
	if a.CollectionName == "" || a.Data == nil {
		return errors.New("collectionName and data are required")
	}
	return nil
}

func (a *addItemAction) execute(ctx context.Context, store docstore.Store, now func() time.Time) (*Result, error) {
	ts := timestamp(now)
	data := cloneRecord(a.Data)
	delete(data, "id")
	data["createdAt"] = ts
	data["lastModified"] = ts

	id, err := store.Add(ctx, a.CollectionName, data)
	if err != nil {
		return nil, err
	}
	return &Result{Status: 201, Body: idResult{ID: id}}, nil
}

type setItemAction struct {
	CollectionName string          `json:"collectionName"`
	ID             string          `json:"id"`
	Data           docstore.Record `json:"data"`
	Merge          bool            `json:"merge"`
}

func (a *setItemAction) validateParams() error {
	if a.CollectionName == "" || a.ID == "" || a.Data == nil {
		return errors.New("collectionName, id, and data are required")
	}
	return nil
}

func (a *setItemAction) execute(ctx context.Context, store docstore.Store, now func() time.Time) (*Result, error) {
	ts := timestamp(now)
	data := cloneRecord(a.Data)
	delete(data, "id")
	data["lastModified"] = ts
	if a.Merge {
		// The merge path never touches createdAt: an existing value stays,
		// an absent one is not backfilled.
		delete(data, "createdAt")
	} else if _, ok := data["createdAt"]; !ok {
		data["createdAt"] = ts
	}

	if err := store.Set(ctx, a.CollectionName, a.ID, data, a.Merge); err != nil {
		return nil, err
	}
	return &Result{Status: 200, Body: idResult{ID: a.ID}}, nil
}

type updateItemAction struct {
	CollectionName string          `json:"collectionName"`
	ID             string          `json:"id"`
	UpdateData     docstore.Record `json:"updateData"`
}

func (a *updateItemAction) validateParams() error {
	if a.CollectionName == "" || a.ID == "" {
		return errors.New("collectionName and id are required")
	}
	if len(a.UpdateData) == 0 {
		return errors.New("non-empty updateData is required")
	}
	return nil
}

func (a *updateItemAction) execute(ctx context.Context, store docstore.Store, now func() time.Time) (*Result, error) {
	patch := cloneRecord(a.UpdateData)
	// Protected fields are stripped, not honored.
	delete(patch, "createdAt")
	delete(patch, "id")
	patch["lastModified"] = timestamp(now)

	if err := store.Update(ctx, a.CollectionName, a.ID, patch); err != nil {
		return nil, err
	}
	return &Result{Status: 200, Body: idResult{ID: a.ID}}, nil
}

type deleteDocumentAction struct {
	CollectionName string `json:"collectionName"`
	ID             string `json:"id"`
}

func (a *deleteDocumentAction) validateParams() error {
	if a.CollectionName == "" || a.ID == "" {
		return errors.New("collectionName and id are required")
	}
	return nil
}

func (a *deleteDocumentAction) execute(ctx context.Context, store docstore.Store, _ func() time.Time) (*Result, error) {
	if err := store.Delete(ctx, a.CollectionName, a.ID); err != nil {
		return nil, err
	}
	return &Result{Status: 200, Body: deleteResult{ID: a.ID, Message: "Document deleted successfully."}}, nil
}

func cloneRecord(r docstore.Record) docstore.Record {
	out := make(docstore.Record, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

func timestamp(now func() time.Time) string {
	return now().UTC().Format(time.RFC3339Nano)
}
