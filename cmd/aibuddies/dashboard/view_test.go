package dashboard

import (
	"strings"
	"testing"

	"aibuddies/internal/app"
)

func assertContains(t *testing.T, view string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(view, w) {
			t.Errorf("view missing %q", w)
		}
	}
}

func assertNotContains(t *testing.T, view string, unwanted ...string) {
	t.Helper()
	for _, w := range unwanted {
		if strings.Contains(view, w) {
			t.Errorf("view should not contain %q", w)
		}
	}
}

func TestLoginView(t *testing.T) {
	m := newTestModel(newFakeController(false), nil)
	view := m.View()

	assertContains(t, view, "BUDDIES", "Sign In", "Continue with Google", "Continue with Github")
	assertNotContains(t, view, "Get Credits", "Select a Tool")
}

func TestDashboardView(t *testing.T) {
	m := newTestModel(newFakeController(true), nil)
	view := m.View()

	assertContains(t, view,
		"Credits: 5",
		"User: a@b.c",
		"Sign Out",
		"Get Credits",
		"Claim Daily Bonus",
		"Watch Ad for Credits",
		"Buy Credits (₹10)",
		"Select a Tool",
		"text generation",
		"Write text",
		"Cost: 2 credit(s)",
		"Cost: 3 credit(s)",
		"Result",
	)
}

func TestHeaderWhileProfileLoads(t *testing.T) {
	ctrl := newFakeController(true)
	ctrl.state.Profile = nil
	m := newTestModel(ctrl, nil)
	view := m.View()

	assertContains(t, view, "Loading Profile...")
	assertNotContains(t, view, "User:", "Credits: ")
}

func TestLoadingView(t *testing.T) {
	ctrl := newFakeController(true)
	ctrl.SelectTool("text_generation")
	ctrl.setRequest(app.RequestState{Loading: true})
	m := newTestModel(ctrl, nil)
	view := m.View()

	assertContains(t, view, "...", "Generating...", "Loading...")
	assertNotContains(t, view, "Claim Daily Bonus", "Generate (Cost:")
}

func TestFormView(t *testing.T) {
	ctrl := newFakeController(true)
	ctrl.SelectTool("code_generation")
	m := newTestModel(ctrl, nil)
	view := m.View()

	assertContains(t, view, "code generation", "Generate (Cost: 3)")
	assertNotContains(t, view, "Upload Image")

	ctrl.SelectTool("image_caption")
	ctrl.SetImage("/tmp/pics/cat.png")
	m, _ = send(t, m, stateChangedMsg{})
	assertContains(t, m.View(), "Upload Image", "cat.png", "Generate (Cost: 1)")
}

func TestBannersView(t *testing.T) {
	ctrl := newFakeController(true)
	ctrl.setRequest(app.RequestState{Error: "Insufficient credits"})
	m := newTestModel(ctrl, nil)
	assertContains(t, m.View(), "Insufficient credits")

	ctrl.setRequest(app.RequestState{Message: "+3 credits! Total: 8"})
	m, _ = send(t, m, stateChangedMsg{})
	assertContains(t, m.View(), "+3 credits! Total: 8")
}

func TestResultView(t *testing.T) {
	ctrl := newFakeController(true)
	m := newTestModel(ctrl, nil)

	ctrl.setResult(map[string]string{"caption": "a cat"})
	m, _ = send(t, m, stateChangedMsg{})

	assertContains(t, m.View(), `"caption": "a cat"`)
}

func TestEmptyCatalogView(t *testing.T) {
	ctrl := newFakeController(true)
	ctrl.state.Catalog = nil
	m := newTestModel(ctrl, nil)

	assertContains(t, m.View(), "No tools available")
}
