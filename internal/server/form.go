package server

const formHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>YouTube Video Data Fetcher and Cost Calculator</title>
<style>
body { font-family: sans-serif; max-width: 40rem; margin: 2rem auto; }
label { display: block; margin-top: 0.8rem; }
input[type=number], input[type=password] { width: 100%; }
button { margin-top: 1.2rem; }
</style>
</head>
<body>
<h1>YouTube Video Data Fetcher and Cost Calculator</h1>
<form action="/process" method="post" enctype="multipart/form-data">
<label>YouTube API key <input type="password" name="api_key"></label>
<label>Old file <input type="file" name="old_file" accept=".xlsx,.csv" required></label>
<label>New file <input type="file" name="new_file" accept=".xlsx,.csv" required></label>
<label>Facebook benchmark <input type="number" step="any" name="facebook_benchmark"></label>
<label>YouTube bumper benchmark <input type="number" step="any" name="youtube_bumper_benchmark"></label>
<label>YouTube skippable reach benchmark <input type="number" step="any" name="youtube_skippable_reach_benchmark"></label>
<label>Facebook cost <input type="number" step="any" name="facebook_cost"></label>
<label>YouTube bumper cost <input type="number" step="any" name="youtube_bumper_cost"></label>
<label>YouTube skippable view cost <input type="number" step="any" name="youtube_skippable_view_cost"></label>
<button type="submit">Download Excel file</button>
</form>
</body>
</html>
`
