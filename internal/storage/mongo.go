package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"findit/internal/model"
	"findit/internal/query"
)

var mongoFields = map[query.Field]string{
	query.FieldIsFound:   "isFound",
	query.FieldDateLost:  "dateLost",
	query.FieldKeywords:  "keywords",
	query.FieldCreatedAt: "createdAt",
	query.FieldID:        "_id",
}

// mongoReport is the BSON shape of a report in both collections.
type mongoReport struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Description      string             `bson:"description"`
	Location         string             `bson:"location"`
	Fullname         string             `bson:"fullname,omitempty"`
	Email            string             `bson:"email,omitempty"`
	PhoneNumber      string             `bson:"phoneNumber,omitempty"`
	Course           string             `bson:"course,omitempty"`
	YearOfStudy      string             `bson:"yearOfStudy,omitempty"`
	ImageURL         string             `bson:"imageUrl,omitempty"`
	DateLost         *time.Time         `bson:"dateLost,omitempty"`
	TimeLost         string             `bson:"timeLost,omitempty"`
	IsFound          bool               `bson:"isFound"`
	VerificationCode int                `bson:"verificationCode,omitempty"`
	Keywords         []string           `bson:"keywords"`
	ExpiresAt        time.Time          `bson:"expiresAt"`
	CreatedAt        time.Time          `bson:"createdAt"`
}

// Mongo implements Store backed by MongoDB, one collection per report kind.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo connects to uri, verifies the connection and ensures the
// collection indexes exist.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	m := &Mongo{client: client, db: client.Database(database)}
	if err := m.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

// EnsureIndexes creates the listing, keyword and TTL indexes. The TTL index
// lets the server expire reports on its own in addition to DeleteExpired.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	for _, c := range []query.Collection{query.LostItems, query.FoundItems} {
		models := []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "expiresAt", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0),
			},
			{Keys: bson.D{{Key: "keywords", Value: 1}}},
		}
		if c == query.LostItems {
			models = append(models, mongo.IndexModel{
				Keys: bson.D{{Key: "isFound", Value: 1}, {Key: "dateLost", Value: -1}, {Key: "_id", Value: -1}},
			})
		}
		if _, err := m.db.Collection(string(c)).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", c, err)
		}
	}
	return nil
}

// Close disconnects the client.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Query runs a descriptor against the descriptor's collection.
func (m *Mongo) Query(ctx context.Context, d query.Descriptor, after *model.Cursor, limit int) ([]Document, error) {
	filter, err := mongoFilter(d, after)
	if err != nil {
		return nil, err
	}
	sort, err := mongoSort(d)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(sort)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := m.db.Collection(string(d.Collection)).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", d.Collection, err)
	}
	var recs []mongoReport
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.Collection, err)
	}

	docs := make([]Document, 0, len(recs))
	for _, r := range recs {
		docs = append(docs, r.document(d.Collection))
	}
	return docs, nil
}

// Get returns a single document by collection and ID.
func (m *Mongo) Get(ctx context.Context, c query.Collection, id string) (*Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var rec mongoReport
	err = m.db.Collection(string(c)).FindOne(ctx, bson.M{"_id": oid}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %s: %w", c, id, err)
	}

	doc := rec.document(c)
	return &doc, nil
}

// SetFound sets the isFound flag of a document.
func (m *Mongo) SetFound(ctx context.Context, c query.Collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := m.db.Collection(string(c)).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"isFound": true}},
	)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", c, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Create inserts a document and populates ID and CreatedAt when unset.
func (m *Mongo) Create(ctx context.Context, doc *Document) error {
	rec, err := newMongoReport(doc)
	if err != nil {
		return err
	}
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	if _, err := m.db.Collection(string(doc.Collection)).InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert %s: %w", doc.Collection, err)
	}
	doc.ID = rec.ID.Hex()
	doc.CreatedAt = rec.CreatedAt
	return nil
}

// DeleteExpired removes expired documents from both collections.
func (m *Mongo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	for _, c := range []query.Collection{query.LostItems, query.FoundItems} {
		res, err := m.db.Collection(string(c)).DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": now}})
		if err != nil {
			return total, fmt.Errorf("delete expired %s: %w", c, err)
		}
		total += res.DeletedCount
	}
	return total, nil
}

func newMongoReport(doc *Document) (mongoReport, error) {
	rec := mongoReport{
		Description:      doc.Description,
		Location:         doc.Location,
		Fullname:         doc.Fullname,
		Email:            doc.Email,
		PhoneNumber:      doc.PhoneNumber,
		Course:           doc.Course,
		YearOfStudy:      doc.YearOfStudy,
		ImageURL:         doc.ImageURL,
		TimeLost:         doc.TimeLost,
		IsFound:          doc.IsFound,
		VerificationCode: doc.VerificationCode,
		Keywords:         doc.Keywords,
		ExpiresAt:        doc.ExpiresAt,
		CreatedAt:        doc.CreatedAt,
	}
	if rec.Keywords == nil {
		rec.Keywords = []string{}
	}
	if !doc.DateLost.IsZero() {
		t := doc.DateLost
		rec.DateLost = &t
	}
	if doc.ID != "" {
		oid, err := primitive.ObjectIDFromHex(doc.ID)
		if err != nil {
			return mongoReport{}, fmt.Errorf("invalid id %q: %w", doc.ID, err)
		}
		rec.ID = oid
	}
	return rec, nil
}

func (r mongoReport) document(c query.Collection) Document {
	doc := Document{
		ID:               r.ID.Hex(),
		Collection:       c,
		Description:      r.Description,
		Location:         r.Location,
		Fullname:         r.Fullname,
		Email:            r.Email,
		PhoneNumber:      r.PhoneNumber,
		Course:           r.Course,
		YearOfStudy:      r.YearOfStudy,
		ImageURL:         r.ImageURL,
		TimeLost:         r.TimeLost,
		IsFound:          r.IsFound,
		VerificationCode: r.VerificationCode,
		Keywords:         r.Keywords,
		ExpiresAt:        r.ExpiresAt.UTC(),
		CreatedAt:        r.CreatedAt.UTC(),
	}
	if r.DateLost != nil {
		doc.DateLost = r.DateLost.UTC()
	}
	return doc
}

func mongoFilter(d query.Descriptor, after *model.Cursor) (bson.D, error) {
	filter := bson.D{}
	for _, p := range d.Predicates {
		name, ok := mongoFields[p.Field]
		if !ok {
			return nil, fmt.Errorf("unsupported field %q", p.Field)
		}
		switch p.Op {
		case query.OpEqual, query.OpArrayContains:
			// Equality against an array field matches any element.
			v, err := mongoValue(p.Field, p.Value)
			if err != nil {
				return nil, err
			}
			filter = append(filter, bson.E{Key: name, Value: v})
		default:
			return nil, fmt.Errorf("unsupported operator %q", p.Op)
		}
	}

	if after == nil {
		return filter, nil
	}

	terms, err := keyset(ordering(d), after)
	if err != nil {
		return nil, err
	}
	or := make(bson.A, 0, len(terms))
	for _, term := range terms {
		clause := bson.D{}
		for _, c := range term.conds {
			name := mongoFields[c.field]
			switch c.cmp {
			case cmpIsNull:
				// Matches documents where the field is absent.
				clause = append(clause, bson.E{Key: name, Value: nil})
				continue
			case cmpNotNull:
				clause = append(clause, bson.E{Key: name, Value: bson.D{{Key: "$ne", Value: nil}}})
				continue
			}
			v, err := mongoValue(c.field, c.value)
			if err != nil {
				return nil, err
			}
			switch c.cmp {
			case cmpLess:
				clause = append(clause, bson.E{Key: name, Value: bson.D{{Key: "$lt", Value: v}}})
			case cmpGreater:
				clause = append(clause, bson.E{Key: name, Value: bson.D{{Key: "$gt", Value: v}}})
			default:
				clause = append(clause, bson.E{Key: name, Value: v})
			}
		}
		or = append(or, clause)
	}
	return append(filter, bson.E{Key: "$or", Value: or}), nil
}

func mongoSort(d query.Descriptor) (bson.D, error) {
	sort := bson.D{}
	for _, s := range ordering(d) {
		name, ok := mongoFields[s.Field]
		if !ok {
			return nil, fmt.Errorf("unsupported sort field %q", s.Field)
		}
		dir := 1
		if s.Direction == query.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: name, Value: dir})
	}
	return sort, nil
}

func mongoValue(f query.Field, v any) (any, error) {
	if f != query.FieldID {
		return v, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("id value must be a string, got %T", v)
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return oid, nil
}
