package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/charlesng35/campusconnect/internal/models"
	"github.com/charlesng35/campusconnect/internal/projects"
	"github.com/charlesng35/campusconnect/internal/repository"
)

func samplePost(t *testing.T) *models.ProjectPost {
	t.Helper()
	requested := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	removed := requested.Add(time.Hour)
	ledger, err := projects.NewLedger(
		projects.JoinRequest{ID: "r1", UserID: "u1", Status: projects.StatusRemoved, RequestTime: requested, RemovalTime: &removed},
		projects.JoinRequest{ID: "r2", UserID: "u2", Status: projects.StatusApproved, RequestTime: requested.Add(time.Minute)},
		projects.JoinRequest{ID: "r3", UserID: "u1", Status: projects.StatusPending, RequestTime: requested.Add(2 * time.Hour)},
	)
	require.NoError(t, err)

	post := &models.ProjectPost{
		Title:             "Hackathon",
		Description:       "Weekend build",
		Skills:            []string{"go", "react"},
		EstimatedDuration: "1 weekend",
		Visibility:        models.VisibilityPublic,
		Team: projects.Team{
			CreatorID: "creator",
			Size:      2,
			Members:   projects.Roster{"u2"},
			Requests:  ledger,
		},
		Version: 4,
	}
	post.ID = uuid.NewString()
	post.CreatedAt = requested
	post.UpdatedAt = requested
	return post
}

func TestDocumentConversionPreservesLedger(t *testing.T) {
	post := samplePost(t)

	decoded, err := fromDocument(toDocument(post))
	require.NoError(t, err)
	require.Equal(t, post.ID, decoded.ID)
	require.Equal(t, post.Requests.Entries(), decoded.Requests.Entries())
	require.Equal(t, post.Members, decoded.Members)
	require.Equal(t, post.Size, decoded.Size)
	require.EqualValues(t, 4, decoded.Version)

	latest, ok := decoded.Requests.Latest("u1")
	require.True(t, ok)
	require.Equal(t, "r3", latest.ID)
}

func TestEngineLedgerSurvivesBSONRoundTrip(t *testing.T) {
	clock := time.Date(2024, 4, 1, 8, 0, 0, 123456789, time.UTC)
	engine := projects.NewEngine(projects.WithClock(func() time.Time { return clock }))

	post := samplePost(t)
	post.Team = projects.Team{CreatorID: "creator", Size: 2}
	joined, err := engine.RequestToJoin(&post.Team, "u1")
	require.NoError(t, err)
	_, err = engine.Decide(&post.Team, "creator", joined.Request.ID, "approve")
	require.NoError(t, err)
	clock = clock.Add(time.Hour + 987654*time.Nanosecond)
	_, err = engine.RemoveMember(&post.Team, "creator", "u1")
	require.NoError(t, err)

	raw, err := bson.Marshal(toDocument(post))
	require.NoError(t, err)
	var doc projectDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	decoded, err := fromDocument(doc)
	require.NoError(t, err)

	want := post.Requests.Entries()
	got := decoded.Requests.Entries()
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].ID, got[i].ID)
		require.Equal(t, want[i].Status, got[i].Status)
		require.True(t, want[i].RequestTime.Equal(got[i].RequestTime), "request time %s != %s", want[i].RequestTime, got[i].RequestTime)
		require.NotNil(t, got[i].RemovalTime)
		require.True(t, want[i].RemovalTime.Equal(*got[i].RemovalTime), "removal time %s != %s", *want[i].RemovalTime, *got[i].RemovalTime)
	}
}

func TestFromDocumentRejectsCorruptLedger(t *testing.T) {
	doc := toDocument(samplePost(t))
	doc.JoinRequests = append(doc.JoinRequests, doc.JoinRequests[0])

	_, err := fromDocument(doc)
	require.Error(t, err)
}

// TestProjectRepositoryAgainstMongo runs when CAMPUS_TEST_MONGO_URI points at a live server.
func TestProjectRepositoryAgainstMongo(t *testing.T) {
	uri := os.Getenv("CAMPUS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CAMPUS_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	collection := client.Database("campus_test").Collection("projects_" + uuid.NewString()[:8])
	t.Cleanup(func() { _ = collection.Drop(context.Background()) })

	repo, err := NewProjectRepository(collection)
	require.NoError(t, err)
	require.NoError(t, repo.EnsureIndexes(ctx))

	post := samplePost(t)
	post.Version = 0
	require.NoError(t, repo.CreateProject(ctx, post))
	require.ErrorIs(t, repo.CreateProject(ctx, post), repository.ErrAlreadyExists)

	a, err := repo.GetProject(ctx, post.ID)
	require.NoError(t, err)
	b, err := repo.GetProject(ctx, post.ID)
	require.NoError(t, err)

	a.Members = projects.Roster{"u2", "u3"}
	require.NoError(t, repo.SaveProject(ctx, a, a.Version))
	require.True(t, a.Formed)

	require.ErrorIs(t, repo.SaveProject(ctx, b, b.Version), repository.ErrVersionConflict)

	open, err := repo.ListProjects(ctx, repository.ProjectFilter{OpenOnly: true})
	require.NoError(t, err)
	require.Empty(t, open)

	_, err = repo.GetProject(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
