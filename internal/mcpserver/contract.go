package mcpserver

// SyntaxContract describes the nested diagram syntax that LLM consumers
// should follow when creating or updating documents.
const SyntaxContract = `# Nestmaid Syntax Contract

A nestmaid document is a Mermaid diagram (the root) plus any number of named
definition blocks that other diagrams embed by id.

## Structure

` + "```" + `
flowchart TD
  A[Start] --> B[{{embed:login}}]

---definition:login---
sequenceDiagram
  User->>Service: {{embed:audit}}
---end---

---definition:pie:audit---
pie
  "ok" : 9
  "failed" : 1
---end---
` + "```" + `

## Rules

1. **Root type.** The first non-blank line of the root (after definition blocks
   are removed) declares the diagram type, e.g. ` + "`" + `flowchart TD` + "`" + `,
   ` + "`" + `sequenceDiagram` + "`" + `, ` + "`" + `erDiagram` + "`" + `, ` + "`" + `pie` + "`" + `.
2. **Definitions** open with ` + "`" + `---definition:id---` + "`" + ` or
   ` + "`" + `---definition:type:id---` + "`" + ` on a line of their own and close with
   ` + "`" + `---end---` + "`" + `. Ids use letters, digits, ` + "`" + `-` + "`" + ` and ` + "`" + `_` + "`" + `.
3. **Embeds** are written ` + "`" + `{{embed:id}}` + "`" + ` or ` + "`" + `{{embed:type:id}}` + "`" + ` anywhere in
   the root or in a definition body. The type annotation on the embed wins over
   the one on the definition, which wins over the detected type.
4. **Rendering.** Each embed is replaced by the quoted id (` + "`" + `"login"` + "`" + `). Inside a
   ` + "`" + `click` + "`" + ` statement that already quotes it, the id is left unquoted.
5. **Limits.** Embeds may nest at most 10 levels deep; a warning is reported from
   level 7. Circular embeds (` + "`" + `a -> b -> a` + "`" + `) fail the whole document.
6. **Ids are global to the document.** Defining the same id twice keeps the last
   block.
7. **Files** end with ` + "`" + `.mmd` + "`" + `, ` + "`" + `.mermaid` + "`" + ` or ` + "`" + `.md` + "`" + `. In Markdown files the first
   ` + "```" + `mermaid fenced block is the document; YAML frontmatter may set ` + "`" + `title` + "`" + `.
8. **Encoding** is UTF-8 with a trailing newline.

## Tools

- ` + "`" + `resolve_diagram` + "`" + ` resolves source text or a stored path and returns the tree.
- ` + "`" + `get_dependents` + "`" + ` lists every diagram in the vault that embeds an id; check it
  before renaming or deleting a definition.
`
