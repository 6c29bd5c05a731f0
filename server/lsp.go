package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/hyperpolymath/obli-transpiler-framework/compiler"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "obli-lsp"

// LspServer provides editor features for MiniObli sources: diagnostics
// from the lexer and parser, hover showing the secrecy classification of
// identifiers, and keyword completion.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "obli LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			text := whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

// keywordDocs drives both completion and keyword hover.
var keywordDocs = map[string]string{
	"let":    "`let name = value body` — binds a name for the body expression",
	"if":     "`if cond then a else b` — lowered to a constant-time selection when cond is secret",
	"then":   "then-branch of a conditional",
	"else":   "else-branch of a conditional",
	"secret": "`secret(e)` — marks a value as sensitive; everything derived from it becomes secret",
	"true":   "boolean literal",
	"false":  "boolean literal",
	"and":    "logical AND (constant-time in emitted code)",
	"or":     "logical OR (constant-time in emitted code)",
	"not":    "logical NOT (constant-time in emitted code)",
}

var completionKeywords = []string{
	"let", "if", "then", "else", "secret", "true", "false", "and", "or", "not",
}

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	uri := params.TextDocument.URI

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, params.Position)

	var items []protocol.CompletionItem
	for _, kw := range completionKeywords {
		if prefix != "" && !strings.HasPrefix(kw, prefix) {
			continue
		}
		kind := protocol.CompletionItemKindKeyword
		detail := keywordDocs[kw]
		kwCopy := kw
		items = append(items, protocol.CompletionItem{
			Label:      kw,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &kwCopy,
		})
	}

	return items, nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := params.TextDocument.URI

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	return s.hover(text, word), nil
}

// hover classifies the word under the cursor: keyword, secret binding, or
// public binding.
func (s *LspServer) hover(text, word string) *protocol.Hover {
	if doc, ok := keywordDocs[word]; ok {
		return markdownHover(fmt.Sprintf("**%s**\n\n%s", word, doc))
	}

	report, err := compiler.Analyze(text)
	if err != nil {
		return nil
	}

	for _, name := range report.SecretVars {
		if name == word {
			return markdownHover(fmt.Sprintf(
				"**%s** — secret\n\nTainted by secret data; conditionals on this value are lowered to `ct_select`.", word))
		}
	}

	return markdownHover(fmt.Sprintf("**%s** — public\n\nNot derived from secret data.", word))
}

func markdownHover(value string) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	var diagnostics []protocol.Diagnostic
	if err := compiler.Check(text); err != nil {
		diagnostics = append(diagnostics, diagnosticFor(text, err))
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnosticFor maps a compiler error to an LSP diagnostic with a real
// source range where the error carries one.
func diagnosticFor(text string, err error) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := lspName

	rng := errorRange(text, err)
	return protocol.Diagnostic{
		Range:    rng,
		Severity: &severity,
		Source:   &source,
		Message:  err.Error(),
	}
}

func errorRange(text string, err error) protocol.Range {
	var start compiler.Position
	width := 1

	switch {
	case asLexError(err) != nil:
		start = asLexError(err).Pos
	case asParseError(err) != nil:
		parseErr := asParseError(err)
		start = parseErr.Tok.Pos
		if n := len(parseErr.Tok.Literal); n > 0 {
			width = n
		}
		if parseErr.Tok.Type == compiler.TokenEOF {
			// Point at the end of the document.
			return endOfTextRange(text)
		}
	default:
		return protocol.Range{}
	}

	line := uint32(max(start.Line-1, 0))
	col := uint32(max(start.Column-1, 0))
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: col},
		End:   protocol.Position{Line: line, Character: col + uint32(width)},
	}
}

func endOfTextRange(text string) protocol.Range {
	lines := strings.Split(text, "\n")
	lastLine := uint32(len(lines) - 1)
	lastCol := uint32(len(lines[len(lines)-1]))
	return protocol.Range{
		Start: protocol.Position{Line: lastLine, Character: lastCol},
		End:   protocol.Position{Line: lastLine, Character: lastCol},
	}
}

func asLexError(err error) *compiler.LexError {
	var lexErr *compiler.LexError
	if errors.As(err, &lexErr) {
		return lexErr
	}
	return nil
}

func asParseError(err error) *compiler.ParseError {
	var parseErr *compiler.ParseError
	if errors.As(err, &parseErr) {
		return parseErr
	}
	return nil
}

// --- Text extraction helpers ---

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 {
		ch := line[start-1]
		if isWordByte(ch) {
			start--
		} else {
			break
		}
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}

	end := col
	for end < len(line) && isWordByte(line[end]) {
		end++
	}

	if start == end {
		return ""
	}

	return line[start:end]
}

func isWordByte(ch byte) bool {
	return ch == '_' ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9')
}

func boolPtr(b bool) *bool {
	return &b
}
