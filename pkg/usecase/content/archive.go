package content

import (
	"context"
	"encoding/json"
	"path"

	"github.com/m-mizutani/aistaff/pkg/adapter"
	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/repository"
	"github.com/m-mizutani/aistaff/pkg/usecase/access"
	"github.com/m-mizutani/aistaff/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// ArchiveKey is the object key of an archived content
func ArchiveKey(content *model.GeneratedContent) string {
	return path.Join("contents", string(content.AgentID), string(content.ID)+".json")
}

// archiveContent is best effort: the record store is the source of truth
func (u *UseCase) archiveContent(ctx context.Context, content *model.GeneratedContent) {
	if u.archive == nil {
		return
	}

	raw, err := json.Marshal(content)
	if err != nil {
		logging.From(ctx).Warn("failed to encode content for archive", "error", err, "content_id", content.ID)
		return
	}

	if err := u.archive.Store(ctx, ArchiveKey(content), raw, "application/json"); err != nil {
		logging.From(ctx).Warn("failed to archive content", "error", err, "content_id", content.ID)
	}
}

// LoadArchived reads back the archived copy of a content of an agent owned by
// the user. A missing object is ErrNotFound.
func LoadArchived(ctx context.Context, repo repository.Repository, archive adapter.Archive, userID model.UserID, agentID model.AgentID, contentID model.ContentID) (*model.GeneratedContent, error) {
	if _, _, err := access.OwnedAgent(ctx, repo, userID, agentID); err != nil {
		return nil, err
	}

	key := ArchiveKey(&model.GeneratedContent{ID: contentID, AgentID: agentID})
	raw, err := archive.Load(ctx, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load archived content", goerr.V("key", key))
	}

	var stored model.GeneratedContent
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, goerr.Wrap(err, "failed to decode archived content", goerr.V("key", key))
	}
	if stored.ID != contentID || stored.AgentID != agentID {
		return nil, goerr.Wrap(model.ErrNotFound, "archived content does not match its key",
			goerr.V("key", key),
			goerr.V("content_id", stored.ID),
		)
	}
	return &stored, nil
}
