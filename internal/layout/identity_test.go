package layout

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveIdentity_GitHubURLVariants(t *testing.T) {
	want := Identity{Namespace: "expressjs", Name: "express"}

	assert.Equal(t, want, DeriveIdentity("https://github.com/expressjs/express"))
	assert.Equal(t, want, DeriveIdentity("https://github.com/expressjs/express.git"))
	assert.Equal(t, want, DeriveIdentity("https://github.com/expressjs/express/"))
	assert.Equal(t, want, DeriveIdentity("git@github.com:expressjs/express.git"))
	assert.Equal(t, want, DeriveIdentity("Expressjs/Express"))
}

func TestDeriveIdentity_LocalPaths(t *testing.T) {
	assert.Equal(t, Identity{Namespace: "local", Name: "myproj"}, DeriveIdentity("/home/u/myproj"))
	assert.Equal(t, Identity{Namespace: "local", Name: "myproj"}, DeriveIdentity("./myproj"))
	assert.Equal(t, Identity{Namespace: "local", Name: "myproj"}, DeriveIdentity("~/code/myproj"))
	assert.Equal(t, Identity{Namespace: "local", Name: "myproj"}, DeriveIdentity("/home/u/myproj/"))
	assert.Equal(t, Identity{Namespace: "local", Name: "my-proj"}, DeriveIdentity("/srv/My Proj"))
}

func TestDeriveIdentity_FallbackSanitization(t *testing.T) {
	idPattern := regexp.MustCompile(`^other/[a-z0-9]+(-[a-z0-9]+)*$`)

	id := DeriveIdentity("weird input!!")
	assert.Equal(t, Identity{Namespace: "other", Name: "weird-input"}, id)
	assert.Regexp(t, idPattern, id.String())

	assert.Regexp(t, idPattern, DeriveIdentity("!!!a###b!!!").String())
	assert.Equal(t, "other/unnamed", DeriveIdentity("!!!").String())
}

func TestDeriveIdentity_Deterministic(t *testing.T) {
	inputs := []string{
		"https://github.com/OWNER/Repo.git",
		"/tmp/some/dir",
		"weird input!!",
		"owner/repo",
	}
	for _, in := range inputs {
		assert.Equal(t, DeriveIdentity(in), DeriveIdentity(in), in)
	}
}

func TestParseIdentity(t *testing.T) {
	id, err := ParseIdentity("expressjs/express")
	assert.NoError(t, err)
	assert.Equal(t, Identity{Namespace: "expressjs", Name: "express"}, id)

	_, err = ParseIdentity("noslash")
	assert.Error(t, err)
	_, err = ParseIdentity("too/many/parts")
	assert.Error(t, err)
}
