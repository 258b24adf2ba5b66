package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/classmark/classmark/internal/registry"
)

func enrollTestStudent(t *testing.T, reg *registry.Registry, name, roll, branch, section string) {
	t.Helper()
	_, err := reg.Enroll(context.Background(), registry.Student{
		Name: name, RollNo: roll, Branch: branch, Section: section,
	}, nil, false)
	if err != nil {
		t.Fatalf("seeding registry: %v", err)
	}
}

func TestStudentsHandler_Enroll_Success(t *testing.T) {
	handler := NewStudentsHandler(testRegistry(t))

	body := bytes.NewBufferString(`{"name":"Rahul Kumar","roll_no":"AIML001","branch":"AIML","section":"A"}`)
	req := httptest.NewRequest("POST", "/api/v1/students", body)
	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)
	assertContentType(t, recorder, "application/json")

	var resp studentResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.RollNo != "AIML001" || resp.Class != "AIML-A" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestStudentsHandler_Enroll_DuplicateRoll(t *testing.T) {
	reg := testRegistry(t)
	enrollTestStudent(t, reg, "Rahul Kumar", "AIML001", "AIML", "A")
	handler := NewStudentsHandler(reg)

	body := bytes.NewBufferString(`{"name":"Someone Else","roll_no":"AIML001","branch":"AIML","section":"A"}`)
	req := httptest.NewRequest("POST", "/api/v1/students", body)
	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, req)

	assertStatusCode(t, recorder, http.StatusConflict)
	assertJSONError(t, recorder, "AIML001")
}

func TestStudentsHandler_Enroll_DuplicateNameConfirmed(t *testing.T) {
	reg := testRegistry(t)
	enrollTestStudent(t, reg, "Rahul Kumar", "AIML001", "AIML", "A")
	handler := NewStudentsHandler(reg)

	// Without confirmation the same name in the same class conflicts.
	body := bytes.NewBufferString(`{"name":"Rahul Kumar","roll_no":"AIML002","branch":"AIML","section":"A"}`)
	req := httptest.NewRequest("POST", "/api/v1/students", body)
	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, req)
	assertStatusCode(t, recorder, http.StatusConflict)

	// With confirmation it goes through.
	body = bytes.NewBufferString(`{"name":"Rahul Kumar","roll_no":"AIML002","branch":"AIML","section":"A","confirm_duplicate_name":true}`)
	req = httptest.NewRequest("POST", "/api/v1/students", body)
	recorder = httptest.NewRecorder()
	handler.Enroll(recorder, req)
	assertStatusCode(t, recorder, http.StatusCreated)
}

func TestStudentsHandler_Enroll_InvalidFormat(t *testing.T) {
	handler := NewStudentsHandler(testRegistry(t))

	body := bytes.NewBufferString(`{"name":"Rahul Kumar","roll_no":"XX1","branch":"AIML","section":"A"}`)
	req := httptest.NewRequest("POST", "/api/v1/students", body)
	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestStudentsHandler_Enroll_BadBody(t *testing.T) {
	handler := NewStudentsHandler(testRegistry(t))

	req := httptest.NewRequest("POST", "/api/v1/students", bytes.NewBufferString("{not json"))
	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errInvalidRequestBody)
}

func TestStudentsHandler_List_ClassFilter(t *testing.T) {
	reg := testRegistry(t)
	enrollTestStudent(t, reg, "Rahul Kumar", "AIML001", "AIML", "A")
	enrollTestStudent(t, reg, "Priya Sharma", "AIML002", "AIML", "A")
	enrollTestStudent(t, reg, "Amit Patel", "CSE001", "CSE", "B")
	handler := NewStudentsHandler(reg)

	req := httptest.NewRequest("GET", "/api/v1/students?branch=AIML&section=A", nil)
	recorder := httptest.NewRecorder()
	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp []studentResponse
	parseJSONResponse(t, recorder, &resp)
	if len(resp) != 2 {
		t.Fatalf("expected 2 students, got %d", len(resp))
	}
	if resp[0].RollNo != "AIML001" {
		t.Errorf("expected roll-number order, got %s first", resp[0].RollNo)
	}

	// Branch without section is rejected.
	req = httptest.NewRequest("GET", "/api/v1/students?branch=AIML", nil)
	recorder = httptest.NewRecorder()
	handler.List(recorder, req)
	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestStudentsHandler_GetAndDelete(t *testing.T) {
	reg := testRegistry(t)
	enrollTestStudent(t, reg, "Rahul Kumar", "AIML001", "AIML", "A")
	handler := NewStudentsHandler(reg)

	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/students/AIML001", nil),
		map[string]string{"roll": "AIML001"})
	recorder := httptest.NewRecorder()
	handler.Get(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	req = requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/students/AIML001", nil),
		map[string]string{"roll": "AIML001"})
	recorder = httptest.NewRecorder()
	handler.Delete(recorder, req)
	assertStatusCode(t, recorder, http.StatusNoContent)

	req = requestWithChiParams(httptest.NewRequest("GET", "/api/v1/students/AIML001", nil),
		map[string]string{"roll": "AIML001"})
	recorder = httptest.NewRecorder()
	handler.Get(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)

	req = requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/students/AIML001", nil),
		map[string]string{"roll": "AIML001"})
	recorder = httptest.NewRecorder()
	handler.Delete(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestStudentsHandler_Count(t *testing.T) {
	reg := testRegistry(t)
	enrollTestStudent(t, reg, "Rahul Kumar", "AIML001", "AIML", "A")
	enrollTestStudent(t, reg, "Amit Patel", "CSE001", "CSE", "B")
	handler := NewStudentsHandler(reg)

	req := httptest.NewRequest("GET", "/api/v1/students/count", nil)
	recorder := httptest.NewRecorder()
	handler.Count(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp map[string]int
	parseJSONResponse(t, recorder, &resp)
	if resp["count"] != 2 {
		t.Errorf("expected count 2, got %d", resp["count"])
	}
}
