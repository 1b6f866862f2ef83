package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/providers/searchcaster"
	"github.com/feral-file/castindex/internal/providers/warpcast"
)

// Users maps feed profiles to users and the locations they reference.
// Locations are returned once per place id.
func Users(ctx context.Context, dtos []warpcast.User) (users []domain.User, locations []domain.Location, dropped int) {
	seenPlaces := make(map[string]struct{})

	for i, dto := range dtos {
		if dto.FID == nil {
			logDrop(ctx, "user", "missing fid", zap.Int("index", i))
			dropped++
			continue
		}

		user := domain.User{
			FID:            *dto.FID,
			Username:       nonEmpty(dto.Username),
			DisplayName:    deref(dto.DisplayName),
			FollowerCount:  deref(dto.FollowerCount),
			FollowingCount: deref(dto.FollowingCount),
			RegisteredAt:   domain.UNRESOLVED_REGISTRATION,
		}
		if dto.Pfp != nil {
			user.PfpURL = deref(dto.Pfp.URL)
			user.Verified = deref(dto.Pfp.Verified)
		}
		if dto.Profile != nil {
			if dto.Profile.Bio != nil {
				user.Bio = deref(dto.Profile.Bio.Text)
			}
			if loc := dto.Profile.Location; loc != nil && deref(loc.PlaceID) != "" {
				placeID := *loc.PlaceID
				user.LocationID = &placeID
				if _, ok := seenPlaces[placeID]; !ok {
					seenPlaces[placeID] = struct{}{}
					locations = append(locations, domain.Location{
						PlaceID:     placeID,
						Description: deref(loc.Description),
					})
				}
			}
		}

		users = append(users, user)
	}

	return users, locations, dropped
}

// Casts maps feed casts to domain casts. A cast without a thread hash is its own thread root.
func Casts(ctx context.Context, dtos []warpcast.Cast) (casts []domain.Cast, dropped int) {
	for i, dto := range dtos {
		hash := deref(dto.Hash)
		switch {
		case hash == "":
			logDrop(ctx, "cast", "missing hash", zap.Int("index", i))
			dropped++
			continue
		case dto.Timestamp == nil:
			logDrop(ctx, "cast", "missing timestamp", zap.String("hash", hash))
			dropped++
			continue
		case dto.Author == nil || dto.Author.FID == nil:
			logDrop(ctx, "cast", "missing author", zap.String("hash", hash))
			dropped++
			continue
		}

		threadHash := deref(dto.ThreadHash)
		if threadHash == "" {
			threadHash = hash
		}

		casts = append(casts, domain.Cast{
			Hash:       hash,
			ThreadHash: threadHash,
			ParentHash: nonEmpty(dto.ParentHash),
			Text:       deref(dto.Text),
			Timestamp:  *dto.Timestamp,
			AuthorFID:  *dto.Author.FID,
		})
	}

	return casts, dropped
}

// Reactions maps the reactions fetched for castHash. The cast hash of the request is used when
// the payload omits it.
func Reactions(ctx context.Context, castHash string, dtos []warpcast.Reaction) (reactions []domain.Reaction, dropped int) {
	for i, dto := range dtos {
		hash := deref(dto.Hash)
		reactionType := domain.ReactionType(deref(dto.Type))
		switch {
		case hash == "":
			logDrop(ctx, "reaction", "missing hash", zap.String("cast_hash", castHash), zap.Int("index", i))
			dropped++
			continue
		case dto.Reactor == nil || dto.Reactor.FID == nil:
			logDrop(ctx, "reaction", "missing reactor", zap.String("hash", hash))
			dropped++
			continue
		case !reactionType.IsValid():
			logDrop(ctx, "reaction", "unknown reaction type", zap.String("hash", hash), zap.String("type", string(reactionType)))
			dropped++
			continue
		}

		target := deref(dto.CastHash)
		if target == "" {
			target = castHash
		}

		reactions = append(reactions, domain.Reaction{
			Hash:         hash,
			ReactionType: reactionType,
			Timestamp:    deref(dto.Timestamp),
			ReactorFID:   *dto.Reactor.FID,
			TargetHash:   target,
		})
	}

	return reactions, dropped
}

// Registration picks the profile registered for fid out of a username lookup.
// Without a matching profile the registration stays unresolved.
func Registration(fid int64, profiles []searchcaster.Profile) domain.UserRegistration {
	reg := domain.UserRegistration{FID: fid, RegisteredAt: domain.UNRESOLVED_REGISTRATION}

	for _, p := range profiles {
		if p.Body.ID == nil || *p.Body.ID != fid {
			continue
		}
		if address := deref(p.Body.Address); address != "" {
			normalized := domain.NormalizeAddress(address)
			reg.Address = &normalized
		}
		if p.Body.RegisteredAt != nil {
			reg.RegisteredAt = *p.Body.RegisteredAt
		}
		return reg
	}

	return reg
}
