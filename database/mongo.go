package database

import (
	"context"
	"time"

	"github.com/mbolis/survey3/log"
	"github.com/mbolis/survey3/model"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colUsers         = "users"
	colOrganizations = "organizations"
	colSurveys       = "surveys"
	colResponses     = "responses"
)

// MongoStore keeps one collection per entity, keyed by ObjectID.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func OpenMongo(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "db.open")
	}
	err = client.Ping(ctx, nil)
	if err != nil {
		client.Disconnect(ctx)
		return nil, errors.Wrap(err, "db.ping")
	}
	return &MongoStore{client: client, db: client.Database(dbName)}, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Migrate creates the indexes; it is idempotent.
func (s *MongoStore) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "address", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colOrganizations: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
		},
		colSurveys: {
			{Keys: bson.D{{Key: "user", Value: 1}}},
			{Keys: bson.D{{Key: "organization", Value: 1}}},
		},
		colResponses: {
			{Keys: bson.D{{Key: "survey", Value: 1}}},
		},
	}
	for col, models := range indexes {
		names, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return errors.Wrapf(err, "db.migrate.%s", col)
		}
		log.Debugf("db.migrate: %s indexes %v", col, names)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type userDoc struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Name    string             `bson:"name"`
	Address string             `bson:"address"`
}

func (d userDoc) model() *model.User {
	return &model.User{ID: d.ID.Hex(), Name: d.Name, Address: d.Address}
}

type organizationDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	Logo        string             `bson:"logo,omitempty"`
	Owner       primitive.ObjectID `bson:"owner"`
}

func (d organizationDoc) model() model.Organization {
	return model.Organization{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Logo:        d.Logo,
		Owner:       d.Owner.Hex(),
	}
}

type surveyDoc struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty"`
	User         primitive.ObjectID  `bson:"user"`
	Name         string              `bson:"name"`
	Slug         string              `bson:"slug"`
	Description  string              `bson:"description,omitempty"`
	EndDate      *time.Time          `bson:"endDate,omitempty"`
	Organization *primitive.ObjectID `bson:"organization,omitempty"`
	MetadataCID  string              `bson:"metadataCID"`
	QuestionsCID string              `bson:"questionsCID"`
	CreatedAt    time.Time           `bson:"createdAt"`
}

func (d surveyDoc) model() model.Survey {
	sv := model.Survey{
		ID:           d.ID.Hex(),
		User:         d.User.Hex(),
		Name:         d.Name,
		Slug:         d.Slug,
		Description:  d.Description,
		MetadataCID:  d.MetadataCID,
		QuestionsCID: d.QuestionsCID,
		CreatedAt:    d.CreatedAt.UTC(),
	}
	if d.EndDate != nil {
		t := d.EndDate.UTC()
		sv.EndDate = &t
	}
	if d.Organization != nil {
		sv.Organization = d.Organization.Hex()
	}
	return sv
}

type responseDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Survey      primitive.ObjectID `bson:"survey"`
	User        primitive.ObjectID `bson:"user"`
	ResponseCID string             `bson:"responseCID"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func (d responseDoc) model() model.Response {
	return model.Response{
		ID:          d.ID.Hex(),
		Survey:      d.Survey.Hex(),
		User:        d.User.Hex(),
		ResponseCID: d.ResponseCID,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

// objectID parses a hex id; malformed ids can never match a document.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return oid, ErrNotFound
	}
	return oid, nil
}

func findOne(ctx context.Context, col *mongo.Collection, filter any, doc any, code string) error {
	err := col.FindOne(ctx, filter).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return errors.Wrap(err, code)
}

func (s *MongoStore) CreateUser(ctx context.Context, u *model.User) error {
	res, err := s.db.Collection(colUsers).InsertOne(ctx, userDoc{Name: u.Name, Address: u.Address})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return errors.Wrap(err, "db.insert_user")
	}
	u.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (s *MongoStore) FindUser(ctx context.Context, id string) (*model.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc userDoc
	err = findOne(ctx, s.db.Collection(colUsers), bson.M{"_id": oid}, &doc, "db.get_user")
	if err != nil {
		return nil, err
	}
	return doc.model(), nil
}

func (s *MongoStore) FindUserByAddress(ctx context.Context, address string) (*model.User, error) {
	var doc userDoc
	err := findOne(ctx, s.db.Collection(colUsers), bson.M{"address": address}, &doc, "db.get_user")
	if err != nil {
		return nil, err
	}
	return doc.model(), nil
}

func (s *MongoStore) CreateOrganization(ctx context.Context, o *model.Organization) error {
	owner, err := objectID(o.Owner)
	if err != nil {
		return errors.Wrap(err, "db.insert_organization.owner")
	}
	res, err := s.db.Collection(colOrganizations).InsertOne(ctx, organizationDoc{
		Name:        o.Name,
		Description: o.Description,
		Logo:        o.Logo,
		Owner:       owner,
	})
	if err != nil {
		return errors.Wrap(err, "db.insert_organization")
	}
	o.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (s *MongoStore) FindOrganization(ctx context.Context, id string) (*model.Organization, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc organizationDoc
	err = findOne(ctx, s.db.Collection(colOrganizations), bson.M{"_id": oid}, &doc, "db.get_organization")
	if err != nil {
		return nil, err
	}
	o := doc.model()
	return &o, nil
}

var byID = options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

func (s *MongoStore) ListOrganizations(ctx context.Context, owner string) ([]model.Organization, error) {
	filter := bson.M{}
	if owner != "" {
		oid, err := objectID(owner)
		if err != nil {
			return []model.Organization{}, nil
		}
		filter["owner"] = oid
	}

	cur, err := s.db.Collection(colOrganizations).Find(ctx, filter, byID)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_organizations")
	}
	var docs []organizationDoc
	err = cur.All(ctx, &docs)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_organizations.decode")
	}

	orgs := make([]model.Organization, len(docs))
	for i, d := range docs {
		orgs[i] = d.model()
	}
	return orgs, nil
}

func (s *MongoStore) CreateSurvey(ctx context.Context, sv *model.Survey) error {
	user, err := objectID(sv.User)
	if err != nil {
		return errors.Wrap(err, "db.insert_survey.user")
	}
	if sv.CreatedAt.IsZero() {
		sv.CreatedAt = time.Now().UTC()
	}
	doc := surveyDoc{
		User:         user,
		Name:         sv.Name,
		Slug:         sv.Slug,
		Description:  sv.Description,
		EndDate:      sv.EndDate,
		MetadataCID:  sv.MetadataCID,
		QuestionsCID: sv.QuestionsCID,
		CreatedAt:    sv.CreatedAt,
	}
	if sv.Organization != "" {
		org, err := objectID(sv.Organization)
		if err != nil {
			return errors.Wrap(err, "db.insert_survey.organization")
		}
		doc.Organization = &org
	}

	res, err := s.db.Collection(colSurveys).InsertOne(ctx, doc)
	if err != nil {
		return errors.Wrap(err, "db.insert_survey")
	}
	sv.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (s *MongoStore) FindSurvey(ctx context.Context, id string) (*model.Survey, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc surveyDoc
	err = findOne(ctx, s.db.Collection(colSurveys), bson.M{"_id": oid}, &doc, "db.get_survey")
	if err != nil {
		return nil, err
	}
	sv := doc.model()
	return &sv, nil
}

func (s *MongoStore) ListSurveys(ctx context.Context, filter model.SurveyFilter) ([]model.Survey, error) {
	q := bson.M{}
	if filter.User != "" {
		oid, err := objectID(filter.User)
		if err != nil {
			return []model.Survey{}, nil
		}
		q["user"] = oid
	}
	if filter.Organization != "" {
		oid, err := objectID(filter.Organization)
		if err != nil {
			return []model.Survey{}, nil
		}
		q["organization"] = oid
	}

	cur, err := s.db.Collection(colSurveys).Find(ctx, q, byID)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_surveys")
	}
	var docs []surveyDoc
	err = cur.All(ctx, &docs)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_surveys.decode")
	}

	surveys := make([]model.Survey, len(docs))
	for i, d := range docs {
		surveys[i] = d.model()
	}
	return surveys, nil
}

func (s *MongoStore) UpdateSurvey(ctx context.Context, id string, upd model.SurveyUpdate) (*model.Survey, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"metadataCID": upd.MetadataCID}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}

	var doc surveyDoc
	err = s.db.Collection(colSurveys).FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "db.update_survey")
	}
	sv := doc.model()
	return &sv, nil
}

func (s *MongoStore) DeleteSurvey(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := s.db.Collection(colSurveys).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrap(err, "db.delete_survey")
	}
	if res.DeletedCount < 1 {
		return ErrNotFound
	}

	_, err = s.db.Collection(colResponses).DeleteMany(ctx, bson.M{"survey": oid})
	return errors.Wrap(err, "db.delete_survey.responses")
}

func (s *MongoStore) CreateResponse(ctx context.Context, r *model.Response) error {
	survey, err := objectID(r.Survey)
	if err != nil {
		return errors.Wrap(err, "db.insert_response.survey")
	}
	user, err := objectID(r.User)
	if err != nil {
		return errors.Wrap(err, "db.insert_response.user")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.Collection(colResponses).InsertOne(ctx, responseDoc{
		Survey:      survey,
		User:        user,
		ResponseCID: r.ResponseCID,
		CreatedAt:   r.CreatedAt,
	})
	if err != nil {
		return errors.Wrap(err, "db.insert_response")
	}
	r.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (s *MongoStore) FindResponse(ctx context.Context, id string) (*model.Response, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc responseDoc
	err = findOne(ctx, s.db.Collection(colResponses), bson.M{"_id": oid}, &doc, "db.get_response")
	if err != nil {
		return nil, err
	}
	r := doc.model()
	return &r, nil
}

func (s *MongoStore) ListResponses(ctx context.Context, surveyID string) ([]model.Response, error) {
	oid, err := objectID(surveyID)
	if err != nil {
		return []model.Response{}, nil
	}

	cur, err := s.db.Collection(colResponses).Find(ctx, bson.M{"survey": oid}, byID)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_responses")
	}
	var docs []responseDoc
	err = cur.All(ctx, &docs)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_responses.decode")
	}

	responses := make([]model.Response, len(docs))
	for i, d := range docs {
		responses[i] = d.model()
	}
	return responses, nil
}
