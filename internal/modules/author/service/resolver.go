package service

import (
	"context"
	"fmt"
	"strings"

	"anoa.com/storyverse/internal/entity"
	"anoa.com/storyverse/internal/modules/author/dto"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserFinder is the single lookup the resolver depends on.
type UserFinder interface {
	FindByIDsOrUsernames(ctx context.Context, ids []primitive.ObjectID, usernames []string) ([]entity.User, error)
}

// Resolver turns author references into summaries with at most one user lookup
// per call. The output has one entry per input, in input order.
type Resolver interface {
	Resolve(ctx context.Context, refs []entity.AuthorRef) ([]dto.AuthorSummary, error)
}

type resolver struct {
	users UserFinder
}

func NewResolver(users UserFinder) Resolver {
	return &resolver{users: users}
}

func (r *resolver) Resolve(ctx context.Context, refs []entity.AuthorRef) ([]dto.AuthorSummary, error) {
	out := make([]dto.AuthorSummary, len(refs))

	var ids []primitive.ObjectID
	var usernames []string
	seenIDs := make(map[primitive.ObjectID]struct{})
	seenNames := make(map[string]struct{})

	for _, ref := range refs {
		switch ref.Kind {
		case entity.AuthorReference:
			if _, ok := seenIDs[ref.ID]; !ok {
				seenIDs[ref.ID] = struct{}{}
				ids = append(ids, ref.ID)
			}
		case entity.AuthorLegacyUsername:
			name := ref.LookupUsername()
			if name == "" {
				continue
			}
			if _, ok := seenNames[name]; !ok {
				seenNames[name] = struct{}{}
				usernames = append(usernames, name)
			}
		}
	}

	table := make(map[string]*entity.User)
	if len(ids) > 0 || len(usernames) > 0 {
		users, err := r.users.FindByIDsOrUsernames(ctx, ids, usernames)
		if err != nil {
			return nil, fmt.Errorf("resolve authors: %w", err)
		}
		for i := range users {
			u := &users[i]
			table[u.ID.Hex()] = u
			table[lowerKey(u.Username)] = u
		}
	}

	for i, ref := range refs {
		switch ref.Kind {
		case entity.AuthorEmbedded:
			out[i] = FromSnapshot(ref.Embedded)
		case entity.AuthorReference:
			out[i] = fromTable(table, ref.ID.Hex(), ref)
		case entity.AuthorLegacyUsername:
			out[i] = fromTable(table, ref.LookupUsername(), ref)
		}
	}
	return out, nil
}

func fromTable(table map[string]*entity.User, key string, ref entity.AuthorRef) dto.AuthorSummary {
	if u, ok := table[key]; ok && key != "" {
		return FromUser(u)
	}
	original := ref.Original()
	return dto.AuthorSummary{ID: original, Username: original}
}

func FromUser(u *entity.User) dto.AuthorSummary {
	return dto.AuthorSummary{
		ID:           u.ID.Hex(),
		Username:     u.Username,
		Name:         u.Name,
		ProfileImage: u.ProfileImage,
	}
}

func FromSnapshot(a *entity.AuthorSnapshot) dto.AuthorSummary {
	if a == nil {
		return dto.AuthorSummary{}
	}
	s := dto.AuthorSummary{
		Username:     a.Username,
		Name:         a.Name,
		ProfileImage: a.ProfileImage,
	}
	if !a.ID.IsZero() {
		s.ID = a.ID.Hex()
	}
	return s
}

func lowerKey(username string) string {
	return strings.ToLower(strings.TrimPrefix(username, "@"))
}
