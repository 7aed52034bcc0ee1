package main

const indexPage = `<!DOCTYPE html>
<html>
  <head>
    <title>Trends Scraper</title>
    <style>
      body { font-family: Arial, sans-serif; margin: 20px; }
      button { padding: 10px 20px; font-size: 16px; }
      #result { margin-top: 20px; }
      .error { color: red; }
    </style>
  </head>
  <body>
    <button id="run">Run the scraper</button>
    <div id="result"></div>
    <script>
      const button = document.getElementById("run");
      const result = document.getElementById("result");

      function text(tag, value, cls) {
        const el = document.createElement(tag);
        el.textContent = value;
        if (cls) el.className = cls;
        return el;
      }

      button.addEventListener("click", async () => {
        button.disabled = true;
        result.replaceChildren(text("p", "Running, please wait..."));
        try {
          const response = await fetch("/run");
          const data = await response.json();
          if (data.error) {
            result.replaceChildren(text("p", "Error: " + data.error, "error"));
            return;
          }
          const list = document.createElement("ul");
          data.trends.forEach(t => list.appendChild(text("li", t)));
          result.replaceChildren(
            text("p", "Top trends as of " + new Date(data.endTime).toLocaleString() + ":"),
            list,
            text("p", "Egress address used: " + data.proxyUsed),
          );
        } catch (err) {
          result.replaceChildren(text("p", "Error: " + err.message, "error"));
        } finally {
          button.disabled = false;
        }
      });
    </script>
  </body>
</html>
`
