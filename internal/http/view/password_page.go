package view

import (
	"bytes"
	"html/template"
)

// PasswordPageData fills the password prompt shown for protected links.
type PasswordPageData struct {
	Title string
	Code  string
	Error string
}

var passwordPageTmpl = template.Must(template.New("password_page").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<meta name="robots" content="noindex" />
	<title>{{.Title}}</title>
	<style>
		:root {
			--bg: #090a0f;
			--card: rgba(255, 255, 255, 0.05);
			--border: rgba(255, 255, 255, 0.15);
			--text: #e7ecff;
			--muted: #a1acc5;
			--accent: #7dd3fc;
			--accent-strong: #38bdf8;
			font-family: "Inter", -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			align-items: center;
			justify-content: center;
			background: radial-gradient(circle at 20% 20%, #111827, #030712 60%);
			color: var(--text);
		}
		.card {
			background: var(--card);
			border: 1px solid var(--border);
			border-radius: 18px;
			padding: 32px;
			width: min(520px, 92vw);
			box-shadow: 0 45px 100px rgba(0,0,0,0.35);
			backdrop-filter: blur(18px);
		}
		h1 {
			font-size: 1.5rem;
			margin-bottom: 6px;
		}
		p {
			color: var(--muted);
			margin-top: 0;
		}
		form {
			margin-top: 24px;
			display: flex;
			flex-direction: column;
			gap: 14px;
		}
		input[type=password] {
			height: 48px;
			padding: 0 16px;
			border-radius: 12px;
			border: 1px solid var(--border);
			background: rgba(255, 255, 255, 0.04);
			color: var(--text);
			font-size: 1rem;
		}
		input[type=password]:focus {
			outline: none;
			border-color: var(--accent);
		}
		button {
			height: 48px;
			border: 0;
			border-radius: 999px;
			background: linear-gradient(120deg, var(--accent), var(--accent-strong));
			color: #050708;
			font-weight: 600;
			font-size: 1rem;
			cursor: pointer;
			transition: transform 0.15s ease, opacity 0.15s ease;
		}
		button:hover {
			transform: translateY(-1px);
			opacity: 0.92;
		}
		.error {
			padding: 12px 16px;
			border-radius: 12px;
			background: rgba(248, 113, 113, 0.1);
			border: 1px solid rgba(248, 113, 113, 0.35);
			color: #fca5a5;
			font-size: 0.92rem;
		}
	</style>
</head>
<body>
	<div class="card">
		<h1>This link is protected</h1>
		<p>Enter the password for <strong>/{{.Code}}</strong> to continue.</p>

		<form method="post" action="/{{.Code}}">
			{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
			<input type="password" name="password" placeholder="Password" autocomplete="current-password" autofocus required />
			<button type="submit">Unlock</button>
		</form>
	</div>
</body>
</html>
`))

// RenderPasswordPage expands the password prompt template.
func RenderPasswordPage(data PasswordPageData) (string, error) {
	if data.Title == "" {
		data.Title = "Password required"
	}
	var buf bytes.Buffer
	if err := passwordPageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
