package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/samurmaykrr/zqlz/pkg/schema"
)

// introspector maps the document catalog onto the tabular introspection
// surface: databases are schemas, collections are tables, and column info is
// inferred by sampling one document.
type introspector struct {
	conn *Conn
}

func (in *introspector) resolveSchema(schemaName string) string {
	if schemaName != "" {
		return schemaName
	}
	if db := in.conn.cfg.DatabaseName; db != "" {
		return db
	}
	return "test"
}

func (in *introspector) ListSchemas(ctx context.Context) ([]string, error) {
	names, err := in.conn.client.ListDatabaseNames(ctx, bson.M{
		"name": bson.M{"$nin": bson.A{"admin", "local", "config"}},
	})
	if err != nil {
		return nil, mapError(err)
	}
	return names, nil
}

func (in *introspector) ListTables(ctx context.Context, schemaName string) ([]schema.TableInfo, error) {
	schemaName = in.resolveSchema(schemaName)
	db := in.conn.client.Database(schemaName)

	specs, err := db.ListCollectionSpecifications(ctx, bson.M{"type": "collection"})
	if err != nil {
		return nil, mapError(err)
	}

	tables := make([]schema.TableInfo, 0, len(specs))
	for _, spec := range specs {
		estimated := int64(-1)
		if count, err := db.Collection(spec.Name).EstimatedDocumentCount(ctx); err == nil {
			estimated = count
		}
		tables = append(tables, schema.TableInfo{
			Schema:        schemaName,
			Name:          spec.Name,
			Type:          schema.TableTypeCollection,
			EstimatedRows: estimated,
		})
	}
	return tables, nil
}

func (in *introspector) ListViews(ctx context.Context, schemaName string) ([]schema.ViewInfo, error) {
	schemaName = in.resolveSchema(schemaName)
	specs, err := in.conn.client.Database(schemaName).ListCollectionSpecifications(ctx, bson.M{"type": "view"})
	if err != nil {
		return nil, mapError(err)
	}

	views := make([]schema.ViewInfo, 0, len(specs))
	for _, spec := range specs {
		view := schema.ViewInfo{Schema: schemaName, Name: spec.Name}
		if spec.Options != nil {
			view.Definition = spec.Options.String()
		}
		views = append(views, view)
	}
	return views, nil
}

// GetTableDetails infers a column set from one sampled document. Document
// stores have no declared structure; the sample is a hint, not a contract.
func (in *introspector) GetTableDetails(ctx context.Context, schemaName, tableName string) (*schema.TableDetails, error) {
	schemaName = in.resolveSchema(schemaName)
	coll := in.conn.client.Database(schemaName).Collection(tableName)

	estimated := int64(-1)
	if count, err := coll.EstimatedDocumentCount(ctx); err == nil {
		estimated = count
	}

	details := &schema.TableDetails{
		Table: schema.TableInfo{
			Schema:        schemaName,
			Name:          tableName,
			Type:          schema.TableTypeCollection,
			EstimatedRows: estimated,
		},
	}

	var sample bson.D
	if err := coll.FindOne(ctx, bson.M{}).Decode(&sample); err == nil {
		for i, elem := range sample {
			details.Columns = append(details.Columns, schema.ColumnInfo{
				Name:         elem.Key,
				Position:     i + 1,
				DataType:     bsonTypeName(elem.Value),
				Nullable:     elem.Key != "_id",
				IsPrimaryKey: elem.Key == "_id",
			})
		}
	}
	if len(details.Columns) > 0 {
		details.PrimaryKey = &schema.PrimaryKeyInfo{Columns: []string{"_id"}}
	}

	if err := in.loadIndexes(ctx, coll, details); err != nil {
		return nil, err
	}
	return details, nil
}

func (in *introspector) loadIndexes(ctx context.Context, coll *mongo.Collection, details *schema.TableDetails) error {
	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		return mapError(err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var idx struct {
			Name   string `bson:"name"`
			Key    bson.D `bson:"key"`
			Unique bool   `bson:"unique"`
		}
		if err := cursor.Decode(&idx); err != nil {
			return err
		}
		// The implicit _id index mirrors the primary key.
		if idx.Name == "_id_" {
			continue
		}
		columns := make([]string, 0, len(idx.Key))
		for _, elem := range idx.Key {
			columns = append(columns, elem.Key)
		}
		details.Indexes = append(details.Indexes, schema.IndexInfo{
			Name:     idx.Name,
			Columns:  columns,
			IsUnique: idx.Unique,
		})
	}
	return cursor.Err()
}

func bsonTypeName(v interface{}) string {
	switch v.(type) {
	case bson.ObjectID:
		return "objectId"
	case string:
		return "string"
	case int32, int64:
		return "int"
	case float64:
		return "double"
	case bool:
		return "bool"
	case bson.DateTime:
		return "date"
	case bson.D, bson.M:
		return "object"
	case bson.A:
		return "array"
	case bson.Binary:
		return "binData"
	case bson.Decimal128:
		return "decimal"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
