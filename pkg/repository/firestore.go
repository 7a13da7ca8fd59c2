package repository

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionUsers      = "users"
	collectionBusinesses = "businesses"
	collectionAgents     = "agents"
	collectionMemories   = "memories"
	collectionMessages   = "messages"
	collectionContents   = "contents"
)

// Firestore implements Repository on Cloud Firestore. Memories, messages and
// contents live in subcollections of their agent document.
type Firestore struct {
	client *firestore.Client
}

var _ Repository = (*Firestore)(nil)

// New creates a Firestore repository for the given project and database
func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	if projectID == "" {
		return nil, goerr.New("firestore project ID is required")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
		)
	}

	return &Firestore{client: client}, nil
}

// Close releases the underlying client
func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) agentDoc(id model.AgentID) *firestore.DocumentRef {
	return r.client.Collection(collectionAgents).Doc(string(id))
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func getDoc[T any](ctx context.Context, ref *firestore.DocumentRef, kind string) (*T, error) {
	snap, err := ref.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(model.ErrNotFound, kind+" not found", goerr.V("id", ref.ID))
		}
		return nil, goerr.Wrap(err, "failed to get "+kind, goerr.V("id", ref.ID))
	}

	var v T
	if err := snap.DataTo(&v); err != nil {
		return nil, goerr.Wrap(err, "failed to decode "+kind, goerr.V("id", ref.ID))
	}
	return &v, nil
}

func collect[T any](iter *firestore.DocumentIterator, kind string) ([]*T, error) {
	defer iter.Stop()

	var result []*T
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate "+kind)
		}

		var v T
		if err := snap.DataTo(&v); err != nil {
			return nil, goerr.Wrap(err, "failed to decode "+kind, goerr.V("id", snap.Ref.ID))
		}
		result = append(result, &v)
	}
	return result, nil
}

func (r *Firestore) PutUser(ctx context.Context, user *model.User) error {
	users := r.client.Collection(collectionUsers)
	stored := *user
	stored.Email = strings.ToLower(user.Email)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(users.Where("Email", "==", stored.Email).Limit(1)).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to query user by email")
		}
		for _, doc := range docs {
			if doc.Ref.ID != string(user.ID) {
				return goerr.Wrap(model.ErrConflict, "email already exists", goerr.V("email", user.Email))
			}
		}
		return tx.Set(users.Doc(string(user.ID)), &stored)
	})
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			return err
		}
		return goerr.Wrap(err, "failed to put user", goerr.V("user_id", user.ID))
	}
	return nil
}

func (r *Firestore) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return getDoc[model.User](ctx, r.client.Collection(collectionUsers).Doc(string(id)), "user")
}

func (r *Firestore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	iter := r.client.Collection(collectionUsers).
		Where("Email", "==", strings.ToLower(email)).
		Limit(1).
		Documents(ctx)

	users, err := collect[model.User](iter, "users")
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, goerr.Wrap(model.ErrNotFound, "user not found", goerr.V("email", email))
	}
	return users[0], nil
}

func (r *Firestore) PutBusiness(ctx context.Context, business *model.Business) error {
	if _, err := r.client.Collection(collectionBusinesses).Doc(string(business.ID)).Set(ctx, business); err != nil {
		return goerr.Wrap(err, "failed to put business", goerr.V("business_id", business.ID))
	}
	return nil
}

func (r *Firestore) GetBusiness(ctx context.Context, id model.BusinessID) (*model.Business, error) {
	return getDoc[model.Business](ctx, r.client.Collection(collectionBusinesses).Doc(string(id)), "business")
}

func (r *Firestore) ListBusinessesByUser(ctx context.Context, userID model.UserID) ([]*model.Business, error) {
	iter := r.client.Collection(collectionBusinesses).
		Where("UserID", "==", string(userID)).
		OrderBy("CreatedAt", firestore.Desc).
		Documents(ctx)
	return collect[model.Business](iter, "businesses")
}

func (r *Firestore) DeleteBusiness(ctx context.Context, id model.BusinessID) error {
	if _, err := r.GetBusiness(ctx, id); err != nil {
		return err
	}

	agents, err := r.ListAgentsByBusiness(ctx, id)
	if err != nil {
		return err
	}

	var (
		children  []*firestore.DocumentRef
		agentDocs []*firestore.DocumentRef
	)
	for _, agent := range agents {
		refs, err := r.agentChildren(ctx, agent.ID)
		if err != nil {
			return err
		}
		children = append(children, refs...)
		agentDocs = append(agentDocs, r.agentDoc(agent.ID))
	}

	// each level is deleted only after the one below it succeeded
	for _, refs := range [][]*firestore.DocumentRef{
		children,
		agentDocs,
		{r.client.Collection(collectionBusinesses).Doc(string(id))},
	} {
		if err := r.bulkDelete(ctx, refs); err != nil {
			return goerr.Wrap(err, "failed to delete business", goerr.V("business_id", id))
		}
	}
	return nil
}

func (r *Firestore) PutAgent(ctx context.Context, agent *model.Agent) error {
	if _, err := r.agentDoc(agent.ID).Set(ctx, agent); err != nil {
		return goerr.Wrap(err, "failed to put agent", goerr.V("agent_id", agent.ID))
	}
	return nil
}

func (r *Firestore) GetAgent(ctx context.Context, id model.AgentID) (*model.Agent, error) {
	return getDoc[model.Agent](ctx, r.agentDoc(id), "agent")
}

func (r *Firestore) ListAgentsByBusiness(ctx context.Context, businessID model.BusinessID) ([]*model.Agent, error) {
	iter := r.client.Collection(collectionAgents).
		Where("BusinessID", "==", string(businessID)).
		OrderBy("CreatedAt", firestore.Desc).
		Documents(ctx)
	return collect[model.Agent](iter, "agents")
}

func (r *Firestore) DeleteAgent(ctx context.Context, id model.AgentID) error {
	if _, err := r.GetAgent(ctx, id); err != nil {
		return err
	}

	children, err := r.agentChildren(ctx, id)
	if err != nil {
		return err
	}
	for _, refs := range [][]*firestore.DocumentRef{children, {r.agentDoc(id)}} {
		if err := r.bulkDelete(ctx, refs); err != nil {
			return goerr.Wrap(err, "failed to delete agent", goerr.V("agent_id", id))
		}
	}
	return nil
}

// agentChildren lists every document of the agent's subcollections
func (r *Firestore) agentChildren(ctx context.Context, id model.AgentID) ([]*firestore.DocumentRef, error) {
	doc := r.agentDoc(id)
	var result []*firestore.DocumentRef
	for _, name := range []string{collectionMemories, collectionMessages, collectionContents} {
		refs, err := doc.Collection(name).DocumentRefs(ctx).GetAll()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list documents", goerr.V("agent_id", id), goerr.V("collection", name))
		}
		result = append(result, refs...)
	}
	return result, nil
}

// deleteJob is the result handle of one queued BulkWriter write
type deleteJob interface {
	Results() (*firestore.WriteResult, error)
}

// bulkDelete deletes refs with a BulkWriter and waits for every write
func (r *Firestore) bulkDelete(ctx context.Context, refs []*firestore.DocumentRef) error {
	if len(refs) == 0 {
		return nil
	}

	bw := r.client.BulkWriter(ctx)
	paths := make([]string, 0, len(refs))
	jobs := make([]deleteJob, 0, len(refs))
	for _, ref := range refs {
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			// writes queued so far are flushed by End; their outcome still counts
			if waitErr := awaitDeletes(paths, jobs); waitErr != nil {
				return errors.Join(goerr.Wrap(err, "failed to enqueue delete", goerr.V("path", ref.Path)), waitErr)
			}
			return goerr.Wrap(err, "failed to enqueue delete", goerr.V("path", ref.Path))
		}
		paths = append(paths, ref.Path)
		jobs = append(jobs, job)
	}
	bw.End()

	return awaitDeletes(paths, jobs)
}

// awaitDeletes collects the outcome of queued deletes. Every failed write is
// reported; the result matches each cause with errors.Is.
func awaitDeletes(paths []string, jobs []deleteJob) error {
	var errs []error
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, goerr.Wrap(err, "failed to delete document", goerr.V("path", paths[i])))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return goerr.Wrap(errors.Join(errs...), "bulk delete incomplete",
		goerr.V("failed", len(errs)),
		goerr.V("total", len(jobs)),
	)
}

func (r *Firestore) PutMemory(ctx context.Context, memory *model.Memory) error {
	ref := r.agentDoc(memory.AgentID).Collection(collectionMemories).Doc(string(memory.ID))
	if _, err := ref.Set(ctx, memory); err != nil {
		return goerr.Wrap(err, "failed to put memory", goerr.V("memory_id", memory.ID))
	}
	return nil
}

func (r *Firestore) ReplaceMemories(ctx context.Context, agentID model.AgentID, memoryType string, memory *model.Memory) error {
	memories := r.agentDoc(agentID).Collection(collectionMemories)
	query := memories.Where("Metadata."+model.MemoryTypeKey, "==", memoryType)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// all reads must precede writes in a transaction
		docs, err := tx.Documents(query).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to query tagged memories")
		}

		for _, doc := range docs {
			if err := tx.Delete(doc.Ref); err != nil {
				return goerr.Wrap(err, "failed to delete memory", goerr.V("memory_id", doc.Ref.ID))
			}
		}
		return tx.Set(memories.Doc(string(memory.ID)), memory)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to replace memories",
			goerr.V("agent_id", agentID),
			goerr.V("type", memoryType),
		)
	}
	return nil
}

func (r *Firestore) ListMemories(ctx context.Context, agentID model.AgentID, limit int) ([]*model.Memory, error) {
	query := r.agentDoc(agentID).Collection(collectionMemories).OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	return collect[model.Memory](query.Documents(ctx), "memories")
}

func (r *Firestore) PutMessage(ctx context.Context, message *model.Message) error {
	ref := r.agentDoc(message.AgentID).Collection(collectionMessages).Doc(string(message.ID))
	if _, err := ref.Set(ctx, message); err != nil {
		return goerr.Wrap(err, "failed to put message", goerr.V("message_id", message.ID))
	}
	return nil
}

func (r *Firestore) ListMessages(ctx context.Context, agentID model.AgentID) ([]*model.Message, error) {
	iter := r.agentDoc(agentID).Collection(collectionMessages).
		OrderBy("CreatedAt", firestore.Asc).
		Documents(ctx)
	return collect[model.Message](iter, "messages")
}

func (r *Firestore) ListRecentMessages(ctx context.Context, agentID model.AgentID, limit int) ([]*model.Message, error) {
	query := r.agentDoc(agentID).Collection(collectionMessages).OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	messages, err := collect[model.Message](query.Documents(ctx), "messages")
	if err != nil {
		return nil, err
	}

	// oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *Firestore) PutContent(ctx context.Context, content *model.GeneratedContent) error {
	ref := r.agentDoc(content.AgentID).Collection(collectionContents).Doc(string(content.ID))
	if _, err := ref.Set(ctx, content); err != nil {
		return goerr.Wrap(err, "failed to put content", goerr.V("content_id", content.ID))
	}
	return nil
}

func (r *Firestore) ListContents(ctx context.Context, agentID model.AgentID) ([]*model.GeneratedContent, error) {
	iter := r.agentDoc(agentID).Collection(collectionContents).
		OrderBy("CreatedAt", firestore.Desc).
		Documents(ctx)
	return collect[model.GeneratedContent](iter, "contents")
}
