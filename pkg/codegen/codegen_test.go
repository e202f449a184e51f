package codegen

import (
	"strings"
	"testing"

	"github.com/olimci/fiberforge/pkg/config"
	"github.com/olimci/fiberforge/pkg/ipm"
	"github.com/olimci/fiberforge/pkg/manifest"
	"github.com/olimci/fiberforge/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blog = `{
  "name": "blog",
  "database": %q,
  "entities": [
    {
      "name": "Post",
      "fields": [
        {"name": "title", "type": "string", "required": true},
        {"name": "views", "type": "int", "default": 0},
        {"name": "published", "type": "date"},
        {"name": "author", "type": "reference", "ref": "User"}
      ],
      "relationships": [
        {"target": "Tag", "cardinality": "many-to-many"}
      ]
    },
    {
      "name": "User",
      "fields": [
        {"name": "email", "type": "string", "required": true},
        {"name": "active", "type": "bool", "default": true}
      ]
    },
    {
      "name": "Tag",
      "fields": [{"name": "label", "type": "string", "required": true}]
    }
  ]
}`

func project(t *testing.T, doc string) *ipm.Project {
	t.Helper()

	raw, err := config.Decode("project.json", []byte(doc))
	require.NoError(t, err)
	p, err := schema.Validate(raw)
	require.NoError(t, err)
	return ipm.Build(p)
}

func blogProject(t *testing.T, db string) *ipm.Project {
	return project(t, strings.Replace(blog, "%q", `"`+db+`"`, 1))
}

func byName(files []manifest.File) map[string]manifest.File {
	out := make(map[string]manifest.File, len(files))
	for _, f := range files {
		out[f.Name] = f
	}
	return out
}

func TestGenerateSetup(t *testing.T) {
	p := project(t, `{"name": "shop", "database": "postgres"}`)

	files, err := New().Generate(p)
	require.NoError(t, err)
	require.Len(t, files, 5)

	var paths, names []string
	for _, f := range files {
		paths = append(paths, f.Path)
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"go.mod", "README.md", "main.go", "database/connection.go", "router/router.go"}, paths)
	assert.Equal(t, []string{NameManifest, NameReadme, NameServer, NameConnection, NameRouter}, names)

	assert.Equal(t, manifest.CreateOnly, files[0].Policy)
	for _, f := range files[1:] {
		assert.Equal(t, manifest.Overwrite, f.Policy, f.Path)
	}

	gomod := string(files[0].Content)
	assert.True(t, strings.HasPrefix(gomod, "module shop\n"))
	assert.Contains(t, gomod, "go 1.22")
	assert.Contains(t, gomod, "github.com/gofiber/fiber/v2 v2.52.5")
	assert.Contains(t, gomod, "github.com/jackc/pgx/v5 v5.7.1")
	assert.NotContains(t, gomod, "mongo-driver")

	router := string(files[4].Content)
	assert.Contains(t, router, `"/health"`)
	assert.NotContains(t, router, `"/api"`)
}

func TestGenerateBlogPostgres(t *testing.T) {
	files, err := New().Generate(blogProject(t, "postgres"))
	require.NoError(t, err)

	// project files plus a model and a handler per entity
	require.Len(t, files, 5+2*3)
	got := byName(files)
	for _, name := range []string{NameServer, NameConnection, NameRouter, "post.model", "post.routes", "user.model", "tag.routes"} {
		assert.Contains(t, got, name)
	}

	model := string(got["post.model"].Content)
	assert.Equal(t, "models/post.go", got["post.model"].Path)
	assert.Equal(t, "Post", got["post.model"].Owner)
	assert.True(t, strings.HasPrefix(model, "// Code generated by fiberforge. DO NOT EDIT."))
	assert.Contains(t, model, "package models")
	assert.Contains(t, model, `const PostTable = "posts"`)
	assert.Contains(t, model, "CREATE TABLE IF NOT EXISTS posts (")
	assert.Contains(t, model, "id BIGSERIAL PRIMARY KEY")
	assert.Contains(t, model, "title TEXT NOT NULL")
	assert.Contains(t, model, "views BIGINT DEFAULT 0")
	assert.Contains(t, model, "FOREIGN KEY (author) REFERENCES users(id)")
	assert.Contains(t, model, "CREATE TABLE IF NOT EXISTS post_tags (")
	assert.Contains(t, model, "func NewPost() *Post")
	assert.Contains(t, model, "Views: int64(0)")

	handlers := string(got["post.routes"].Content)
	assert.Equal(t, "handlers/post.go", got["post.routes"].Path)
	assert.Contains(t, handlers, "func RegisterPostRoutes(router fiber.Router, db *sql.DB)")
	assert.Contains(t, handlers, `router.Group("/posts")`)
	assert.Contains(t, handlers, "RETURNING id")
	assert.Contains(t, handlers, "$4")

	conn := string(got[NameConnection].Content)
	assert.Contains(t, conn, `_ "github.com/jackc/pgx/v5/stdlib"`)
	assert.Contains(t, conn, `sql.Open("pgx", dsn)`)
	assert.NotContains(t, conn, "go-sql-driver")

	router := string(got[NameRouter].Content)
	assert.Contains(t, router, `app.Group("/api")`)
	assert.Contains(t, router, "handlers.RegisterTagRoutes(api, db)")
}

func TestGenerateDependencyOrder(t *testing.T) {
	files, err := New().Generate(blogProject(t, "postgres"))
	require.NoError(t, err)

	var models []string
	for _, f := range files {
		if strings.HasSuffix(f.Name, ".model") {
			models = append(models, f.Name)
		}
	}
	// Post refers to User and Tag, so both are created first.
	assert.Equal(t, []string{"user.model", "tag.model", "post.model"}, models)

	conn := string(byName(files)[NameConnection].Content)
	assert.Less(t, strings.Index(conn, "models.UserSchema"), strings.Index(conn, "models.PostSchema"))
}

func TestGenerateMySQL(t *testing.T) {
	files, err := New().Generate(blogProject(t, "mysql"))
	require.NoError(t, err)
	got := byName(files)

	model := string(got["user.model"].Content)
	assert.Contains(t, model, "email VARCHAR(255) NOT NULL")
	assert.Contains(t, model, "active BOOLEAN DEFAULT TRUE")
	assert.Contains(t, model, "id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY")

	handlers := string(got["user.routes"].Content)
	assert.Contains(t, handlers, "LastInsertId")
	assert.NotContains(t, handlers, "RETURNING")

	conn := string(got[NameConnection].Content)
	assert.Contains(t, conn, `"github.com/go-sql-driver/mysql"`)
	assert.NotContains(t, conn, `_ "github.com/go-sql-driver/mysql"`)
	assert.Contains(t, conn, "err != nil && !applied(err)")
	assert.Contains(t, conn, "var me *mysql.MySQLError")
	assert.Contains(t, conn, "me.Number == 1060")
	assert.Contains(t, string(got[NameManifest].Content), "github.com/go-sql-driver/mysql v1.8.1")
}

const comments = `{
  "name": "blog",
  "database": %q,
  "entities": [
    {
      "name": "Post",
      "fields": [{"name": "title", "type": "string"}],
      "relationships": [{"target": "Comment", "cardinality": "one-to-many"}]
    },
    {
      "name": "Comment",
      "fields": [{"name": "body", "type": "string"}]
    }
  ]
}`

func TestGenerateOneToManyColumn(t *testing.T) {
	tests := []struct {
		db     string
		alter  string
		insert string
	}{
		{
			db:     "postgres",
			alter:  "ALTER TABLE comments ADD COLUMN IF NOT EXISTS post_id BIGINT REFERENCES posts(id)",
			insert: "INSERT INTO comments (body, post_id) VALUES ($1, $2) RETURNING id",
		},
		{
			db:     "mysql",
			alter:  "ALTER TABLE comments ADD COLUMN post_id BIGINT UNSIGNED",
			insert: "INSERT INTO comments (body, post_id) VALUES (?, ?)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.db, func(t *testing.T) {
			files, err := New().Generate(project(t, strings.Replace(comments, "%q", `"`+tt.db+`"`, 1)))
			require.NoError(t, err)
			got := byName(files)

			assert.Contains(t, string(got["post.model"].Content), tt.alter)

			comment := string(got["comment.model"].Content)
			assert.Contains(t, comment, `var CommentColumns = []string{"body", "post_id"}`)
			assert.Contains(t, comment, `json:"post_id,omitempty"`)
			assert.Contains(t, comment, "m.PostID")
			// the column is added by the ALTER TABLE, never by CREATE TABLE
			assert.NotContains(t, comment, "post_id BIGINT")

			assert.Contains(t, string(got["comment.routes"].Content), tt.insert)
		})
	}
}

func TestGenerateMongo(t *testing.T) {
	files, err := New().Generate(blogProject(t, "mongodb"))
	require.NoError(t, err)
	got := byName(files)

	model := string(got["post.model"].Content)
	assert.Contains(t, model, `"$jsonSchema"`)
	assert.Contains(t, model, `"title": {"bsonType": "string"}`)
	assert.Contains(t, model, `"views": {"bsonType": "long"}`)
	assert.Contains(t, model, `"required": ["title"]`)
	assert.Contains(t, model, `"tag_ids": {"bsonType": "array", "items": {"bsonType": "objectId"}}`)
	assert.Contains(t, model, "primitive.ObjectID")
	assert.NotContains(t, model, "CREATE TABLE")

	handlers := string(got["post.routes"].Content)
	assert.Contains(t, handlers, "func RegisterPostRoutes(router fiber.Router, db *mongo.Database)")
	assert.Contains(t, handlers, "InsertOne")

	conn := string(got[NameConnection].Content)
	assert.Contains(t, conn, "MONGODB_URI")
	assert.Contains(t, conn, "SetValidator")
	assert.Contains(t, string(got[NameManifest].Content), "go.mongodb.org/mongo-driver v1.17.1")
}

func TestGenerateDeterministic(t *testing.T) {
	for _, db := range []string{"postgres", "mysql", "mongodb"} {
		t.Run(db, func(t *testing.T) {
			first, err := New().Generate(blogProject(t, db))
			require.NoError(t, err)
			second, err := New().Generate(blogProject(t, db))
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestGenerateUnmapped(t *testing.T) {
	p := blogProject(t, "postgres")

	_, err := New(WithMappings(Mappings{})).Generate(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnmapped)

	var me *MappingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, schema.Postgres, me.Database)
	assert.Equal(t, schema.String, me.FieldType)

	noJoin := DefaultMappings()
	delete(noJoin.Relationships[schema.Postgres], schema.ManyToMany)
	_, err = New(WithMappings(noJoin)).Generate(p)
	require.ErrorAs(t, err, &me)
	assert.Equal(t, schema.ManyToMany, me.Cardinality)
	assert.Equal(t, "Post", me.Entity)
}

func TestGenerateMappingOverride(t *testing.T) {
	m := DefaultMappings().Merge(Mappings{
		Types: map[schema.Database]map[schema.FieldType]string{
			schema.Postgres: {schema.String: "VARCHAR(120)"},
		},
	})

	files, err := New(WithMappings(m), WithHeader(""), WithGoVersion("1.23")).Generate(blogProject(t, "postgres"))
	require.NoError(t, err)
	got := byName(files)

	model := string(got["post.model"].Content)
	assert.Contains(t, model, "title VARCHAR(120) NOT NULL")
	assert.Contains(t, model, "views BIGINT DEFAULT 0")
	assert.NotContains(t, model, "DO NOT EDIT")
	assert.Contains(t, string(got[NameManifest].Content), "go 1.23")
}
