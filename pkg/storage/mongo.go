package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chacrab/chacrab/pkg/errdefs"
	"github.com/chacrab/chacrab/pkg/types"
)

const mongoDefaultDatabase = "chacrab"

// mongoDatabaseName extracts the database from the connection URL path.
func mongoDatabaseName(databaseURL string) string {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return mongoDefaultDatabase
	}
	name := strings.TrimPrefix(parsed.Path, "/")
	if name == "" {
		return mongoDefaultDatabase
	}
	return name
}

// MongoRepository persists vault data in MongoDB. Binary fields use generic
// BSON binary; timestamps use native BSON datetimes (millisecond precision).
type MongoRepository struct {
	client     *mongo.Client
	items      *mongo.Collection
	tombstones *mongo.Collection
	auth       *mongo.Collection
	meta       *mongo.Collection
}

// OpenMongo connects to the deployment at databaseURL. The database name
// comes from the URL path, defaulting to "chacrab".
func OpenMongo(ctx context.Context, databaseURL string) (*MongoRepository, error) {
	database := mongoDatabaseName(databaseURL)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(databaseURL))
	if err != nil {
		return nil, errdefs.Storage(err)
	}

	db := client.Database(database)
	return &MongoRepository{
		client:     client,
		items:      db.Collection("vault_items"),
		tombstones: db.Collection("sync_tombstones"),
		auth:       db.Collection("auth"),
		meta:       db.Collection("schema_meta"),
	}, nil
}

func (r *MongoRepository) Init(ctx context.Context) error {
	for _, collection := range []*mongo.Collection{r.items, r.tombstones} {
		_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return errdefs.Storage(err)
		}
	}

	_, err := r.meta.UpdateOne(ctx,
		bson.M{"_id": "schema"},
		bson.M{"$set": bson.M{"schema_version": SchemaVersion}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errdefs.Storage(err)
	}
	return nil
}

func mongoItemDocument(item *types.VaultItem) bson.M {
	doc := bson.M{
		"id":             item.ID.String(),
		"item_type":      string(item.Type),
		"title":          item.Title,
		"encrypted_data": primitive.Binary{Data: item.EncryptedData},
		"nonce":          primitive.Binary{Data: item.Nonce},
		"sync_version":   int64(item.SyncVersion),
		"created_at":     primitive.NewDateTimeFromTime(item.CreatedAt.UTC()),
		"updated_at":     primitive.NewDateTimeFromTime(item.UpdatedAt.UTC()),
	}
	if item.Username != nil {
		doc["username"] = *item.Username
	}
	if item.URL != nil {
		doc["url"] = *item.URL
	}
	return doc
}

type mongoItemDoc struct {
	ID            string             `bson:"id"`
	ItemType      string             `bson:"item_type"`
	Title         string             `bson:"title"`
	Username      *string            `bson:"username,omitempty"`
	URL           *string            `bson:"url,omitempty"`
	EncryptedData primitive.Binary   `bson:"encrypted_data"`
	Nonce         primitive.Binary   `bson:"nonce"`
	SyncVersion   int64              `bson:"sync_version"`
	CreatedAt     primitive.DateTime `bson:"created_at"`
	UpdatedAt     primitive.DateTime `bson:"updated_at"`
}

func (doc *mongoItemDoc) toItem() (types.VaultItem, error) {
	if len(doc.Nonce.Data) != types.NonceSize {
		return types.VaultItem{}, errdefs.Storage(errMalformedNonce)
	}
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return types.VaultItem{}, errdefs.Storage(err)
	}
	itemType, ok := types.ParseItemType(doc.ItemType)
	if !ok {
		return types.VaultItem{}, errdefs.Storage(errors.New("unknown item type"))
	}
	return types.VaultItem{
		ID:            id,
		Type:          itemType,
		Title:         doc.Title,
		Username:      doc.Username,
		URL:           doc.URL,
		EncryptedData: doc.EncryptedData.Data,
		Nonce:         doc.Nonce.Data,
		SyncVersion:   uint64(doc.SyncVersion),
		CreatedAt:     doc.CreatedAt.Time().UTC(),
		UpdatedAt:     doc.UpdatedAt.Time().UTC(),
	}, nil
}

func (r *MongoRepository) UpsertItem(ctx context.Context, item *types.VaultItem) error {
	_, err := r.items.ReplaceOne(ctx,
		bson.M{"id": item.ID.String()},
		mongoItemDocument(item),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errdefs.Storage(err)
	}
	return nil
}

func (r *MongoRepository) ListItems(ctx context.Context) ([]types.VaultItem, error) {
	cursor, err := r.items.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, errdefs.Storage(err)
	}
	defer cursor.Close(ctx)

	var items []types.VaultItem
	for cursor.Next(ctx) {
		var doc mongoItemDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, errdefs.Storage(err)
		}
		item, err := doc.toItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, errdefs.Storage(err)
	}
	return items, nil
}

func (r *MongoRepository) GetItem(ctx context.Context, id uuid.UUID) (types.VaultItem, error) {
	var doc mongoItemDoc
	err := r.items.FindOne(ctx, bson.M{"id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.VaultItem{}, errdefs.ErrNotFound
	}
	if err != nil {
		return types.VaultItem{}, errdefs.Storage(err)
	}
	return doc.toItem()
}

func (r *MongoRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	result, err := r.items.DeleteOne(ctx, bson.M{"id": id.String()})
	if err != nil {
		return errdefs.Storage(err)
	}
	if result.DeletedCount == 0 {
		return errdefs.ErrNotFound
	}
	return nil
}

func (r *MongoRepository) UpsertTombstone(ctx context.Context, tombstone *types.SyncTombstone) error {
	_, err := r.tombstones.ReplaceOne(ctx,
		bson.M{"id": tombstone.ID.String()},
		bson.M{
			"id":           tombstone.ID.String(),
			"deleted_at":   primitive.NewDateTimeFromTime(tombstone.DeletedAt.UTC()),
			"sync_version": int64(tombstone.SyncVersion),
		},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errdefs.Storage(err)
	}
	return nil
}

type mongoTombstoneDoc struct {
	ID          string             `bson:"id"`
	DeletedAt   primitive.DateTime `bson:"deleted_at"`
	SyncVersion int64              `bson:"sync_version"`
}

func (r *MongoRepository) ListTombstones(ctx context.Context) ([]types.SyncTombstone, error) {
	cursor, err := r.tombstones.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "deleted_at", Value: -1}}))
	if err != nil {
		return nil, errdefs.Storage(err)
	}
	defer cursor.Close(ctx)

	var tombstones []types.SyncTombstone
	for cursor.Next(ctx) {
		var doc mongoTombstoneDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, errdefs.Storage(err)
		}
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, errdefs.Storage(err)
		}
		tombstones = append(tombstones, types.SyncTombstone{
			ID:          id,
			DeletedAt:   doc.DeletedAt.Time().UTC(),
			SyncVersion: uint64(doc.SyncVersion),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, errdefs.Storage(err)
	}
	return tombstones, nil
}

func (r *MongoRepository) DeleteTombstone(ctx context.Context, id uuid.UUID) error {
	if _, err := r.tombstones.DeleteOne(ctx, bson.M{"id": id.String()}); err != nil {
		return errdefs.Storage(err)
	}
	return nil
}

type mongoAuthDoc struct {
	Salt        string `bson:"salt"`
	Verifier    string `bson:"verifier"`
	Argon2MCost int64  `bson:"argon2_m_cost"`
	Argon2TCost int64  `bson:"argon2_t_cost"`
	Argon2PCost int64  `bson:"argon2_p_cost"`
}

func (r *MongoRepository) GetAuthRecord(ctx context.Context) (*types.AuthRecord, error) {
	var doc mongoAuthDoc
	err := r.auth.FindOne(ctx, bson.M{"_id": "auth"}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errdefs.Storage(err)
	}
	return &types.AuthRecord{
		Salt:        doc.Salt,
		Verifier:    doc.Verifier,
		Argon2MCost: uint32(doc.Argon2MCost),
		Argon2TCost: uint32(doc.Argon2TCost),
		Argon2PCost: uint32(doc.Argon2PCost),
	}, nil
}

func (r *MongoRepository) SetAuthRecord(ctx context.Context, auth *types.AuthRecord) error {
	_, err := r.auth.UpdateOne(ctx,
		bson.M{"_id": "auth"},
		bson.M{"$set": bson.M{
			"salt":          auth.Salt,
			"verifier":      auth.Verifier,
			"argon2_m_cost": int64(auth.Argon2MCost),
			"argon2_t_cost": int64(auth.Argon2TCost),
			"argon2_p_cost": int64(auth.Argon2PCost),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errdefs.Storage(err)
	}
	return nil
}

func (r *MongoRepository) Close() error {
	return r.client.Disconnect(context.Background())
}
