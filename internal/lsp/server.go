package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/diagnostics"
	"hlasmcore/internal/pipeline"
	"hlasmcore/internal/symbols"
)

// LSPVersion is the JSON-RPC version field every message carries.
const LSPVersion = "2.0"

// Server is the editor-facing JSON-RPC loop: message framing and document
// sync are independent of the HLASM analysis itself, which lives in
// internal/pipeline; this package's job is translating one into the other.
type Server struct {
	in      *bufio.Reader
	out     io.Writer
	mu      sync.Mutex
	docs    map[string]*document
	running bool
}

// document is one open text document plus the analysis built from its
// current content.
type document struct {
	URI     string
	Content string
	Version int
	Index   *Index
	Diags   []diagnostics.Diagnostic
	Opcodes *pipelineSnapshot
}

// pipelineSnapshot carries the bits of a finished Pipeline a query needs
// after Run returns, since the Pipeline itself isn't retained.
type pipelineSnapshot struct {
	macros map[ast.ID]bool
	vars   *symbols.VarTable
}

func NewServer(in io.Reader, out io.Writer) *Server {
	return &Server{
		in:   bufio.NewReader(in),
		out:  out,
		docs: make(map[string]*document),
	}
}

// Start runs the message loop until exit or ctx cancellation.
func (s *Server) Start(ctx context.Context) error {
	s.running = true
	for s.running {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.handleMessage(); err != nil {
				if err == io.EOF {
					return nil
				}
				fmt.Fprintf(os.Stderr, "lsp: %v\n", err)
			}
		}
	}
	return nil
}

func (s *Server) handleMessage() error {
	contentLength := 0
	for {
		line, err := s.in.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "Content-Length:") {
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Content-Length:")))
			if err != nil {
				return fmt.Errorf("invalid Content-Length: %v", err)
			}
			contentLength = n
		}
	}
	if contentLength == 0 {
		return nil
	}
	content := make([]byte, contentLength)
	if _, err := io.ReadFull(s.in, content); err != nil {
		return err
	}
	var msg Message
	if err := json.Unmarshal(content, &msg); err != nil {
		return fmt.Errorf("parsing message: %v", err)
	}
	return s.dispatch(&msg)
}

// Message is one JSON-RPC request, response, or notification.
type Message struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

func (s *Server) dispatch(msg *Message) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.sendResponse(msg.ID, nil)
	case "exit":
		s.running = false
		return nil
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/completion":
		return s.handleCompletion(msg)
	case "textDocument/hover":
		return s.handleHover(msg)
	case "textDocument/definition":
		return s.handleDefinition(msg)
	case "textDocument/references":
		return s.handleReferences(msg)
	case "textDocument/documentSymbol":
		return s.handleDocumentSymbol(msg)
	default:
		if msg.ID != nil {
			return s.sendError(msg.ID, -32601, "method not found: "+msg.Method)
		}
		return nil
	}
}

func (s *Server) sendResponse(id *json.RawMessage, result interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeMessage(map[string]interface{}{"jsonrpc": LSPVersion, "id": id, "result": result})
}

func (s *Server) sendError(id *json.RawMessage, code int, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeMessage(map[string]interface{}{
		"jsonrpc": LSPVersion, "id": id,
		"error": map[string]interface{}{"code": code, "message": message},
	})
}

func (s *Server) sendNotification(method string, params interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeMessage(map[string]interface{}{"jsonrpc": LSPVersion, "method": method, "params": params})
}

func (s *Server) writeMessage(msg interface{}) error {
	content, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.out, "Content-Length: %d\r\n\r\n", len(content)); err != nil {
		return err
	}
	_, err = s.out.Write(content)
	return err
}

// Position/Range mirror the LSP wire shapes (0-based line/character).
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

func toLSPRange(r ast.Range) Range {
	return Range{
		Start: Position{Line: r.Start.Line, Character: r.Start.Col},
		End:   Position{Line: r.End.Line, Character: r.End.Col},
	}
}

func fromLSPPosition(p Position) ast.Position {
	return ast.Position{Line: p.Line, Col: p.Character}
}

type ServerCapabilities struct {
	TextDocumentSync       int                 `json:"textDocumentSync"`
	CompletionProvider     *CompletionOptions  `json:"completionProvider,omitempty"`
	HoverProvider          bool                `json:"hoverProvider"`
	DefinitionProvider     bool                `json:"definitionProvider"`
	ReferencesProvider     bool                `json:"referencesProvider"`
	DocumentSymbolProvider bool                `json:"documentSymbolProvider"`
}

type CompletionOptions struct {
	TriggerCharacters []string `json:"triggerCharacters"`
}

func (s *Server) handleInitialize(msg *Message) error {
	return s.sendResponse(msg.ID, map[string]interface{}{
		"capabilities": ServerCapabilities{
			TextDocumentSync:       1,
			CompletionProvider:     &CompletionOptions{TriggerCharacters: []string{"&", "."}},
			HoverProvider:          true,
			DefinitionProvider:     true,
			ReferencesProvider:     true,
			DocumentSymbolProvider: true,
		},
		"serverInfo": map[string]string{"name": "hlasmcore", "sessionId": uuid.NewString()},
	})
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type didOpenParams struct {
	TextDocument struct {
		URI     string `json:"uri"`
		Version int    `json:"version"`
		Text    string `json:"text"`
	} `json:"textDocument"`
}

func (s *Server) handleDidOpen(msg *Message) error {
	var params didOpenParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	doc := s.analyze(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
	s.mu.Lock()
	s.docs[doc.URI] = doc
	s.mu.Unlock()
	return s.publishDiagnostics(doc)
}

type didChangeParams struct {
	TextDocument struct {
		URI     string `json:"uri"`
		Version int    `json:"version"`
	} `json:"textDocument"`
	ContentChanges []struct {
		Text string `json:"text"`
	} `json:"contentChanges"`
}

func (s *Server) handleDidChange(msg *Message) error {
	var params didChangeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	doc := s.analyze(params.TextDocument.URI, text, params.TextDocument.Version)
	s.mu.Lock()
	s.docs[doc.URI] = doc
	s.mu.Unlock()
	return s.publishDiagnostics(doc)
}

func (s *Server) handleDidClose(msg *Message) error {
	var params struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.docs, params.TextDocument.URI)
	s.mu.Unlock()
	return s.sendNotification("textDocument/publishDiagnostics", map[string]interface{}{
		"uri": params.TextDocument.URI, "diagnostics": []interface{}{},
	})
}

// docLines adapts an in-memory document's text to pipeline.Source.
type docLines []string

func (d docLines) Line(n int) (string, bool) {
	if n < 0 || n >= len(d) {
		return "", false
	}
	return d[n], true
}

// analyze runs one Pipeline over text and captures everything a later
// query needs: the diagnostic list, the occurrence index, and the macro
// catalog/variable scope in effect at end of analysis.
func (s *Server) analyze(uri, text string, version int) *document {
	lines := docLines(strings.Split(text, "\n"))
	col := &diagnostics.Collector{}
	idx := NewIndex(uri)
	p := pipeline.New(lines, nil, diagnostics.Forwarding{File: uri, Inner: col}, pipeline.Hooks{
		OnStatement: idx.Hook(),
	})
	_ = p.Run()
	return &document{
		URI:     uri,
		Content: text,
		Version: version,
		Index:   idx,
		Diags:   col.Diags,
		Opcodes: &pipelineSnapshot{macros: macroNameSet(p), vars: p.BaseVars()},
	}
}

func macroNameSet(p *pipeline.Pipeline) map[ast.ID]bool {
	out := make(map[ast.ID]bool, len(p.Macros))
	for name := range p.Macros {
		out[name] = true
	}
	return out
}

type lspDiagnostic struct {
	Range    Range  `json:"range"`
	Severity int    `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Source   string `json:"source"`
}

func (s *Server) publishDiagnostics(doc *document) error {
	out := make([]lspDiagnostic, 0, len(doc.Diags))
	for _, d := range doc.Diags {
		out = append(out, lspDiagnostic{
			Range:    toLSPRange(d.Range),
			Severity: int(d.Severity),
			Code:     d.Code,
			Message:  d.Message,
			Source:   "hlasmcore",
		})
	}
	return s.sendNotification("textDocument/publishDiagnostics", map[string]interface{}{
		"uri": doc.URI, "diagnostics": out,
	})
}

type positionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

func (s *Server) getDoc(uri string) (*document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

func (s *Server) handleCompletion(msg *Message) error {
	var params positionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, -32602, "invalid params")
	}
	doc, ok := s.getDoc(params.TextDocument.URI)
	if !ok {
		return s.sendResponse(msg.ID, []CompletionItem{})
	}
	prefix := wordAt(doc.Content, params.Position)
	items := Complete(strings.TrimPrefix(prefix, "&"), doc.Opcodes.macros, doc.Opcodes.vars)
	return s.sendResponse(msg.ID, items)
}

func wordAt(content string, pos Position) string {
	lines := strings.Split(content, "\n")
	if pos.Line < 0 || pos.Line >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	if pos.Character > len(line) {
		pos.Character = len(line)
	}
	start := pos.Character
	for start > 0 && isWordChar(line[start-1]) {
		start--
	}
	return line[start:pos.Character]
}

func isWordChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '&' || c == '#' || c == '$' || c == '@'
}

type hover struct {
	Contents markupContent `json:"contents"`
}

type markupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func (s *Server) handleHover(msg *Message) error {
	var params positionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, -32602, "invalid params")
	}
	doc, ok := s.getDoc(params.TextDocument.URI)
	if !ok {
		return s.sendResponse(msg.ID, nil)
	}
	name, ok := doc.Index.At(fromLSPPosition(params.Position))
	if !ok {
		return s.sendResponse(msg.ID, nil)
	}
	occs := doc.Index.OccurrencesOf(name)
	return s.sendResponse(msg.ID, hover{Contents: markupContent{
		Kind:  "markdown",
		Value: fmt.Sprintf("**%s**\n\n%d occurrence(s)", name, len(occs)),
	}})
}

type location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

func (s *Server) handleDefinition(msg *Message) error {
	var params positionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, -32602, "invalid params")
	}
	doc, ok := s.getDoc(params.TextDocument.URI)
	if !ok {
		return s.sendResponse(msg.ID, nil)
	}
	name, ok := doc.Index.At(fromLSPPosition(params.Position))
	if !ok {
		return s.sendResponse(msg.ID, nil)
	}
	rng, ok := doc.Index.DefinitionOf(name)
	if !ok {
		return s.sendResponse(msg.ID, nil)
	}
	return s.sendResponse(msg.ID, location{URI: doc.URI, Range: toLSPRange(rng)})
}

func (s *Server) handleReferences(msg *Message) error {
	var params positionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, -32602, "invalid params")
	}
	doc, ok := s.getDoc(params.TextDocument.URI)
	if !ok {
		return s.sendResponse(msg.ID, []location{})
	}
	name, ok := doc.Index.At(fromLSPPosition(params.Position))
	if !ok {
		return s.sendResponse(msg.ID, []location{})
	}
	occs := doc.Index.OccurrencesOf(name)
	out := make([]location, 0, len(occs))
	for _, occ := range occs {
		out = append(out, location{URI: doc.URI, Range: toLSPRange(occ.Range)})
	}
	return s.sendResponse(msg.ID, out)
}

type documentSymbol struct {
	Name           string `json:"name"`
	Kind           int    `json:"kind"`
	Range          Range  `json:"range"`
	SelectionRange Range  `json:"selectionRange"`
}

const symbolKindVariable = 13

func (s *Server) handleDocumentSymbol(msg *Message) error {
	var params struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, -32602, "invalid params")
	}
	doc, ok := s.getDoc(params.TextDocument.URI)
	if !ok {
		return s.sendResponse(msg.ID, []documentSymbol{})
	}
	seen := make(map[ast.ID]bool)
	out := []documentSymbol{}
	for _, occ := range doc.Index.Opencode.Occurrences {
		if occ.Kind != OccDefinition || seen[occ.Name] {
			continue
		}
		seen[occ.Name] = true
		out = append(out, documentSymbol{
			Name:           string(occ.Name),
			Kind:           symbolKindVariable,
			Range:          toLSPRange(occ.Range),
			SelectionRange: toLSPRange(occ.Range),
		})
	}
	return s.sendResponse(msg.ID, out)
}
