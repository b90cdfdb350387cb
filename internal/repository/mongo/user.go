package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
)

// userProjection leaves out watchHistory, which only WatchHistory reads.
var userProjection = bson.D{{Key: "watchHistory", Value: 0}}

func (db *DB) CreateUser(ctx context.Context, u *model.User) (err error) {
	defer observe("create_user", time.Now(), &err)

	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Username:     strings.ToLower(strings.TrimSpace(u.Username)),
		Email:        strings.ToLower(strings.TrimSpace(u.Email)),
		FullName:     u.FullName,
		Avatar:       u.Avatar,
		CoverImage:   u.CoverImage,
		Password:     u.PasswordHash,
		RefreshToken: u.RefreshToken,
		WatchHistory: []primitive.ObjectID{},
		CreatedAt:    now(),
	}
	doc.UpdatedAt = doc.CreatedAt

	if _, err = db.col(colUsers).InsertOne(ctx, doc); err != nil {
		if mongodrv.IsDuplicateKeyError(err) {
			return apperror.ConflictMessage("User already exists with this username or email")
		}
		return fmt.Errorf("mongo: creating user: %w", err)
	}
	*u = *doc.toModel()
	return nil
}

func (db *DB) findUser(ctx context.Context, filter bson.D) (*model.User, error) {
	var doc userDoc
	err := db.col(colUsers).FindOne(ctx, filter, options.FindOne().SetProjection(userProjection)).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (_ *model.User, err error) {
	defer observe("get_user", time.Now(), &err)

	oid, err := objectID("user", id)
	if err != nil {
		return nil, err
	}
	u, err := db.findUser(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("mongo: getting user %s: %w", id, err)
	}
	return u, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (_ *model.User, err error) {
	defer observe("get_user_by_username", time.Now(), &err)

	username = strings.ToLower(strings.TrimSpace(username))
	u, err := db.findUser(ctx, bson.D{{Key: "username", Value: username}})
	if err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFoundMessage("User not found")
		}
		return nil, fmt.Errorf("mongo: getting user %s: %w", username, err)
	}
	return u, nil
}

func (db *DB) FindUserByLogin(ctx context.Context, username, email string) (_ *model.User, err error) {
	defer observe("find_user_by_login", time.Now(), &err)

	var or bson.A
	if username = strings.ToLower(strings.TrimSpace(username)); username != "" {
		or = append(or, bson.D{{Key: "username", Value: username}})
	}
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		or = append(or, bson.D{{Key: "email", Value: email}})
	}
	if len(or) == 0 {
		return nil, apperror.NotFoundMessage("User not found")
	}

	u, err := db.findUser(ctx, bson.D{{Key: "$or", Value: or}})
	if err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFoundMessage("User not found")
		}
		return nil, fmt.Errorf("mongo: finding user by login: %w", err)
	}
	return u, nil
}

func (db *DB) UpdateUser(ctx context.Context, u *model.User) (err error) {
	defer observe("update_user", time.Now(), &err)

	oid, err := objectID("user", u.ID)
	if err != nil {
		return err
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.UpdatedAt = now()

	res, err := db.col(colUsers).UpdateByID(ctx, oid, bson.D{{Key: "$set", Value: bson.D{
		{Key: "email", Value: u.Email},
		{Key: "fullName", Value: u.FullName},
		{Key: "avatar", Value: u.Avatar},
		{Key: "coverImage", Value: u.CoverImage},
		{Key: "password", Value: u.PasswordHash},
		{Key: "updatedAt", Value: u.UpdatedAt},
	}}})
	if err != nil {
		if mongodrv.IsDuplicateKeyError(err) {
			return apperror.ConflictMessage("Email is already in use")
		}
		return fmt.Errorf("mongo: updating user %s: %w", u.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("user", u.ID)
	}
	return nil
}

func (db *DB) SetRefreshToken(ctx context.Context, userID, token string) (err error) {
	defer observe("set_refresh_token", time.Now(), &err)

	oid, err := objectID("user", userID)
	if err != nil {
		return err
	}
	res, err := db.col(colUsers).UpdateByID(ctx, oid,
		bson.D{{Key: "$set", Value: bson.D{{Key: "refreshToken", Value: token}}}})
	if err != nil {
		return fmt.Errorf("mongo: setting refresh token for %s: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// SwapRefreshToken matches on the current token, so two concurrent refreshes
// with the same token cannot both succeed.
func (db *DB) SwapRefreshToken(ctx context.Context, userID, current, next string) (_ bool, err error) {
	defer observe("swap_refresh_token", time.Now(), &err)

	if current == "" {
		return false, nil
	}
	oid, err := objectID("user", userID)
	if err != nil {
		return false, nil
	}
	res, err := db.col(colUsers).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}, {Key: "refreshToken", Value: current}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "refreshToken", Value: next}}}})
	if err != nil {
		return false, fmt.Errorf("mongo: swapping refresh token for %s: %w", userID, err)
	}
	return res.ModifiedCount == 1, nil
}

func (db *DB) AddToWatchHistory(ctx context.Context, userID, videoID string) (err error) {
	defer observe("add_watch_history", time.Now(), &err)

	uid, err := objectID("user", userID)
	if err != nil {
		return err
	}
	vid, err := objectID("video", videoID)
	if err != nil {
		return err
	}
	ok, err := db.exists(ctx, colVideos, vid)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NotFound("video", videoID)
	}

	res, err := db.col(colUsers).UpdateByID(ctx, uid, watchHistoryUpdate(vid))
	if err != nil {
		return fmt.Errorf("mongo: adding %s to watch history of %s: %w", videoID, userID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}
