package web

// indexPage 最简单的监视页面：显示解码文本和当前速度
const indexPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>flashcw</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; margin: 2em; }
#text { font-size: 2em; color: #7fdc7f; white-space: pre-wrap; word-break: break-all; }
#status { color: #888; margin-top: 1em; }
</style>
</head>
<body>
<div id="text"></div>
<div id="status">connecting...</div>
<script>
const text = document.getElementById("text");
const status = document.getElementById("status");
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onopen = () => { status.textContent = "connected"; };
ws.onclose = () => { status.textContent = "disconnected"; };
ws.onmessage = (msg) => {
  const ev = JSON.parse(msg.data);
  if (ev.type === "char_decoded") {
    text.textContent = ev.data.text;
    status.textContent = "unit " + Number(ev.data.unit).toFixed(3) + "s, " + Number(ev.data.wpm).toFixed(1) + " WPM";
  } else if (ev.type === "session_start") {
    text.textContent = "";
  } else if (ev.type === "session_end") {
    status.textContent = "session ended: " + ev.data.text;
  }
};
</script>
</body>
</html>
`
