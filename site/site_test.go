package site

import (
	"strings"
	"testing"
)

func TestShippedValuesValidate(t *testing.T) {
	if err := Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestSiteValues(t *testing.T) {
	if Site.Title != "Parango Blog" {
		t.Errorf("Site.Title = %q", Site.Title)
	}
	if Site.NumPostsOnHomepage != 5 {
		t.Errorf("NumPostsOnHomepage = %d, want 5", Site.NumPostsOnHomepage)
	}
	if Site.NumProjectsOnHomepage != 3 {
		t.Errorf("NumProjectsOnHomepage = %d, want 3", Site.NumProjectsOnHomepage)
	}
	if Projects.Title != "Proyectos" {
		t.Errorf("Projects.Title = %q", Projects.Title)
	}
}

func TestSocialLinksOrder(t *testing.T) {
	links := SocialLinks()
	want := []string{"X (Twitter)", "GitHub", "LinkedIn"}
	if len(links) != len(want) {
		t.Fatalf("len(SocialLinks()) = %d, want %d", len(links), len(want))
	}
	for i, name := range want {
		if links[i].Name != name {
			t.Errorf("SocialLinks()[%d].Name = %q, want %q", i, links[i].Name, name)
		}
	}
}

func TestSocialLinksReturnsCopy(t *testing.T) {
	links := SocialLinks()
	links[0].Href = "https://example.com"
	if SocialLinks()[0].Href == "https://example.com" {
		t.Fatal("mutating the returned slice changed the shared list")
	}
}

func TestSocialHost(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"https://x.com/parangodev", "x.com"},
		{"https://www.linkedin.com/in/pabloarangodev/", "linkedin.com"},
		{"::bad", ""},
	}
	for _, tt := range tests {
		if got := (Social{Href: tt.href}).Host(); got != tt.want {
			t.Errorf("Host(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}

func TestValidateReportsProblems(t *testing.T) {
	info := Info{Title: " ", Description: "d", Email: "nope", NumPostsOnHomepage: 0, NumProjectsOnHomepage: 1}
	pages := []namedPage{{"Home", Metadata{Title: "Inicio"}}, {"Blog", Metadata{}}}
	links := Socials{
		{Name: "GitHub", Href: "https://github.com/a"},
		{Name: "GitHub again", Href: "https://GitHub.com/a/"},
		{Name: "", Href: "ftp://example.com"},
	}
	err := validate(info, pages, links)
	if err == nil {
		t.Fatal("expected an error")
	}
	msg := err.Error()
	for _, want := range []string{
		"Site.Title is empty",
		"is not an address",
		"NumPostsOnHomepage must be positive",
		"Home.Description is empty",
		"duplicates the URL of Socials[0]",
		"Socials[2].Name is empty",
		"not an absolute http(s) URL",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
	// Pages are reported in declaration order.
	if i, j := strings.Index(msg, "Home.Description"), strings.Index(msg, "Blog.Title"); i < 0 || j < 0 || i > j {
		t.Errorf("page errors out of order: %q", msg)
	}
	if again := validate(info, pages, links); again.Error() != msg {
		t.Errorf("error changed between runs:\n%s\n%s", msg, again)
	}
}

func TestValidateAllowsDuplicateNames(t *testing.T) {
	info := Info{Title: "t", Description: "d", Email: "a@b.c", NumPostsOnHomepage: 1, NumProjectsOnHomepage: 1}
	links := Socials{
		{Name: "GitHub", Href: "https://github.com/a"},
		{Name: "GitHub", Href: "https://github.com/b"},
	}
	if err := validate(info, nil, links); err != nil {
		t.Fatalf("validate() = %v, want nil", err)
	}
}
