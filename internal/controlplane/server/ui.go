package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleUI(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(uiHTML))
}

const uiHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1"/>
  <title>PolyCopy</title>
  <style>
    body { font-family: ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Arial; margin: 0; }
    .wrap { display: grid; grid-template-columns: 340px 1fr; height: 100vh; }
    .left { border-right: 1px solid #eee; padding: 12px; overflow:auto; }
    .right { padding: 12px; overflow:auto; }
    input { width: 100%; box-sizing: border-box; margin-bottom: 8px; }
    pre { background:#0b1020; color:#d6e2ff; padding:12px; border-radius:8px; overflow:auto; min-height: 420px; white-space: pre-wrap; }
    button { margin-right: 8px; }
    .row { display:flex; gap: 8px; align-items:center; flex-wrap: wrap; }
    .muted { color:#666; font-size: 12px; }
    .on { color: #0a7d32; } .off { color: #b00020; }
  </style>
</head>
<body>
<div class="wrap">
  <div class="left">
    <h3 style="margin-top:0">PolyCopy</h3>
    <label class="muted">Tenant</label><input id="tenant" value="default"/>
    <label class="muted">Target wallet</label><input id="target" placeholder="0x..."/>
    <label class="muted">Private key</label><input id="private_key" type="password"/>
    <label class="muted">API key / secret / passphrase (optional)</label>
    <input id="api_key" placeholder="api key"/>
    <input id="api_secret" type="password" placeholder="api secret"/>
    <input id="passphrase" type="password" placeholder="passphrase"/>
    <label class="muted">Amount per trade (USDC)</label><input id="amount" value="10"/>
    <div class="row"><input id="match_amount" type="checkbox" style="width:auto"/><span class="muted">match target amount</span></div>
    <div class="row" style="margin-top:8px">
      <button onclick="start()">Start</button>
      <button onclick="stop()">Stop</button>
    </div>
    <p id="msg" class="muted"></p>
  </div>
  <div class="right">
    <div class="row"><h3 style="margin:0">Status:</h3><span id="state" class="off">idle</span><span id="stats" class="muted"></span></div>
    <pre id="logs"></pre>
  </div>
</div>
<script>
function base() { return '/api/tenants/' + encodeURIComponent(document.getElementById('tenant').value.trim() || 'default'); }
function val(id) { return document.getElementById(id).value.trim(); }

async function start() {
  const body = {
    target: val('target'), private_key: val('private_key'),
    api_key: val('api_key'), api_secret: val('api_secret'), passphrase: val('passphrase'),
    amount: val('amount'), match_amount: document.getElementById('match_amount').checked,
  };
  const res = await fetch(base() + '/start', { method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify(body) });
  const data = await res.json();
  document.getElementById('msg').textContent = data.message || '';
  refresh();
}

async function stop() {
  const res = await fetch(base() + '/stop', { method: 'POST' });
  const data = await res.json();
  document.getElementById('msg').textContent = data.message || '';
  setTimeout(refresh, 1000);
}

async function refresh() {
  try {
    const res = await fetch(base() + '/status');
    const data = await res.json();
    const st = document.getElementById('state');
    st.textContent = data.state;
    st.className = data.running ? 'on' : 'off';
    const s = data.stats || {};
    document.getElementById('stats').textContent = 'detected ' + (s.detected||0) + ' / submitted ' + (s.submitted||0) + ' / failed ' + (s.failed||0) + ' / skipped ' + (s.skipped||0);
    const logs = document.getElementById('logs');
    logs.textContent = (data.logs || []).join('\n');
    logs.scrollTop = logs.scrollHeight;
  } catch (e) {}
}

setInterval(refresh, 1000);
refresh();
</script>
</body>
</html>
`
